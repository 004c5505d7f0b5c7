// Package alerts holds the dismissible user-facing messages of a session.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/curious-containers/cc-jupyter-cli/internal/events"
)

// Level is the severity of an alert.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Alert is one message shown to the user.
type Alert struct {
	ID        int
	Level     Level
	Message   string
	Time      time.Time
	Dismissed bool
}

// Pusher is the write side of a Sink, accepted by components that report
// problems to the user.
type Pusher interface {
	Push(level Level, message string) int
}

// Sink is an append-only list of alerts. Dismissing only marks an alert.
type Sink struct {
	eventBus *events.EventBus
	alerts   []Alert
	nextID   int
	now      func() time.Time

	mu sync.RWMutex
}

// NewSink creates an empty sink publishing to eventBus (may be nil).
func NewSink(eventBus *events.EventBus) *Sink {
	return &Sink{
		eventBus: eventBus,
		nextID:   1,
		now:      time.Now,
	}
}

// Push appends an alert and returns its id.
func (s *Sink) Push(level Level, message string) int {
	s.mu.Lock()
	a := Alert{
		ID:      s.nextID,
		Level:   level,
		Message: message,
		Time:    s.now(),
	}
	s.nextID++
	s.alerts = append(s.alerts, a)
	s.mu.Unlock()

	s.eventBus.PublishAlert(a.ID, string(a.Level), a.Message, false)
	return a.ID
}

func (s *Sink) Info(format string, args ...interface{}) int {
	return s.Push(LevelInfo, fmt.Sprintf(format, args...))
}

func (s *Sink) Success(format string, args ...interface{}) int {
	return s.Push(LevelSuccess, fmt.Sprintf(format, args...))
}

func (s *Sink) Warning(format string, args ...interface{}) int {
	return s.Push(LevelWarning, fmt.Sprintf(format, args...))
}

func (s *Sink) Danger(format string, args ...interface{}) int {
	return s.Push(LevelDanger, fmt.Sprintf(format, args...))
}

// Dismiss marks the alert as dismissed. Unknown ids and repeated dismissals
// return false.
func (s *Sink) Dismiss(id int) bool {
	s.mu.Lock()
	var dismissed *Alert
	for i := range s.alerts {
		if s.alerts[i].ID == id && !s.alerts[i].Dismissed {
			s.alerts[i].Dismissed = true
			a := s.alerts[i]
			dismissed = &a
			break
		}
	}
	s.mu.Unlock()

	if dismissed == nil {
		return false
	}
	s.eventBus.PublishAlert(dismissed.ID, string(dismissed.Level), dismissed.Message, true)
	return true
}

// DismissAll marks every active alert as dismissed and returns how many were.
func (s *Sink) DismissAll() int {
	n := 0
	for _, a := range s.Active() {
		if s.Dismiss(a.ID) {
			n++
		}
	}
	return n
}

// Active returns a copy of the alerts not yet dismissed, oldest first.
func (s *Sink) Active() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if !a.Dismissed {
			result = append(result, a)
		}
	}
	return result
}

// All returns a copy of every alert ever pushed, oldest first.
func (s *Sink) All() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Alert, len(s.alerts))
	copy(result, s.alerts)
	return result
}

// Count returns the number of alerts pushed at the given level.
func (s *Sink) Count(level Level) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.alerts {
		if a.Level == level {
			n++
		}
	}
	return n
}
