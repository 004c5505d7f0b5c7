package alerts

import (
	"testing"
	"time"

	"github.com/curious-containers/cc-jupyter-cli/internal/events"
)

func TestSink_PushAndActive(t *testing.T) {
	s := NewSink(nil)

	id1 := s.Info("Please add at least one notebook")
	id2 := s.Danger("Could not parse %s", "broken.ipynb")

	if id1 == id2 {
		t.Fatalf("ids should be unique, got %d twice", id1)
	}

	active := s.Active()
	if len(active) != 2 {
		t.Fatalf("len(Active()) = %d, want 2", len(active))
	}
	if active[1].Message != "Could not parse broken.ipynb" {
		t.Errorf("Message = %q", active[1].Message)
	}
	if active[1].Level != LevelDanger {
		t.Errorf("Level = %q, want danger", active[1].Level)
	}
}

func TestSink_DismissKeepsHistory(t *testing.T) {
	s := NewSink(nil)
	id := s.Warning("slow response")
	s.Success("submitted")

	if !s.Dismiss(id) {
		t.Fatal("Dismiss() = false, want true")
	}
	if s.Dismiss(id) {
		t.Error("second Dismiss() = true, want false")
	}
	if s.Dismiss(999) {
		t.Error("Dismiss(unknown) = true, want false")
	}

	if got := len(s.Active()); got != 1 {
		t.Errorf("len(Active()) = %d, want 1", got)
	}
	all := s.All()
	if len(all) != 2 || !all[0].Dismissed {
		t.Errorf("All() = %+v, want 2 alerts with the first dismissed", all)
	}
}

func TestSink_DismissAll(t *testing.T) {
	s := NewSink(nil)
	s.Info("a")
	s.Info("b")
	if got := s.DismissAll(); got != 2 {
		t.Errorf("DismissAll() = %d, want 2", got)
	}
	if got := s.Count(LevelInfo); got != 2 {
		t.Errorf("Count(info) = %d, want 2", got)
	}
}

func TestSink_PublishesEvents(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventAlert)

	s := NewSink(bus)
	id := s.Danger("boom")
	s.Dismiss(id)

	for _, wantDismissed := range []bool{false, true} {
		select {
		case ev := <-ch:
			a := ev.(*events.AlertEvent)
			if a.AlertID != id || a.Dismissed != wantDismissed {
				t.Errorf("event = %+v, want id %d dismissed %v", a, id, wantDismissed)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Timeout waiting for alert event")
		}
	}
}
