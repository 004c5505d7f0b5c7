package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	"github.com/curious-containers/cc-jupyter-cli/internal/polling"
)

// Run shows the interactive results view until the user quits or ctx is done.
// bridge must be the view the engine behind actions was created with.
func Run(ctx context.Context, bridge *Bridge, actions Actions, source AlertSource, eventBus *events.EventBus, saver polling.Saver) error {
	p := tea.NewProgram(NewModel(ctx, actions, source, saver), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)
	defer bridge.Detach()

	done := make(chan struct{})
	defer close(done)
	if eventBus != nil {
		alertCh := eventBus.Subscribe(events.EventAlert)
		defer eventBus.Unsubscribe(events.EventAlert, alertCh)
		downloadCh := eventBus.Subscribe(events.EventDownload)
		defer eventBus.Unsubscribe(events.EventDownload, downloadCh)
		go forward(done, bridge, alertCh, downloadCh)
	}

	_, err := p.Run()
	actions.Leave()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// forward turns bus events into program messages until done is closed.
func forward(done <-chan struct{}, bridge *Bridge, alertCh, downloadCh <-chan events.Event) {
	for {
		select {
		case <-done:
			return
		case _, ok := <-alertCh:
			if !ok {
				return
			}
			bridge.send(alertMsg{})
		case ev, ok := <-downloadCh:
			if !ok {
				return
			}
			if d, isDownload := ev.(*events.DownloadEvent); isDownload && !d.Done {
				bridge.send(downloadMsg{notebookID: d.NotebookID, current: d.Current, total: d.Total})
			}
		}
	}
}
