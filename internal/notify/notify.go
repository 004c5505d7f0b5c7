// Package notify sends desktop notifications when jobs finish.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

const appTitle = "cc-jupyter"

// Notifier handles desktop notifications.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
	mu      sync.RWMutex

	// notify and alert are replaced in tests.
	notify func(title, message string) error
	alert  func(title, message string) error
}

// NewNotifier creates a notifier.
func NewNotifier(enabled bool, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		logger:  logger,
		enabled: enabled,
		notify: func(title, message string) error {
			// beeep.Notify is cross-platform:
			// - Windows: Uses toast notifications
			// - macOS: Uses NSUserNotificationCenter
			// - Linux: Uses D-Bus notifications
			return beeep.Notify(title, message, "")
		},
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// JobFinished notifies about a job that left the processing state.
func (n *Notifier) JobFinished(filename string, status models.ProcessStatus) {
	if !n.IsEnabled() {
		return
	}

	name := truncate(filename, 40)
	switch status {
	case models.StatusSuccess:
		n.send(appTitle, fmt.Sprintf("Notebook %q finished.\nThe result is ready for download.", name))
	case models.StatusFailure:
		title := appTitle + " job failed"
		message := fmt.Sprintf("Notebook %q failed.", name)
		// beeep.Alert is more prominent on some platforms
		if err := n.alert(title, message); err != nil {
			n.send(title, message)
		}
	case models.StatusCancelled:
		n.send(appTitle, fmt.Sprintf("Notebook %q was cancelled.", name))
	default:
		n.send(appTitle, fmt.Sprintf("Notebook %q is now %s.", name, status))
	}
}

// DownloadComplete sends a notification for a saved result.
func (n *Notifier) DownloadComplete(filename, location string) {
	if !n.IsEnabled() {
		return
	}
	n.send("Download Complete", fmt.Sprintf("%q saved to:\n%s", truncate(filename, 40), shortenPath(location)))
}

// DownloadFailed sends a notification for a failed download.
func (n *Notifier) DownloadFailed(filename, errorMsg string) {
	if !n.IsEnabled() {
		return
	}
	n.send("Download Failed", fmt.Sprintf("%q failed:\n%s", truncate(filename, 40), truncate(errorMsg, 100)))
}

// Watch notifies about every job transition out of processing published on
// eventBus until ctx is done.
func (n *Notifier) Watch(ctx context.Context, eventBus *events.EventBus) {
	if eventBus == nil {
		return
	}
	ch := eventBus.Subscribe(events.EventResultsChanged)
	go func() {
		defer eventBus.Unsubscribe(events.EventResultsChanged, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				change, ok := ev.(*events.ResultsChangedEvent)
				if !ok {
					continue
				}
				status := models.ProcessStatus(change.NewStatus)
				if models.ProcessStatus(change.OldStatus) == models.StatusProcessing && status.IsTerminal() {
					n.JobFinished(change.Filename, status)
				}
			}
		}
	}()
}

func (n *Notifier) send(title, message string) {
	if err := n.notify(title, message); err != nil {
		n.logger.Warn().Err(err).Str("title", title).Msg("Failed to send notification")
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}
