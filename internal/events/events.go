package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog            EventType = "log"
	EventAlert          EventType = "alert"
	EventResultsChanged EventType = "results_changed"
	EventPollingState   EventType = "polling_state"
	EventDownload       EventType = "download"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
}

// AlertEvent is published for every alert pushed to the sink.
type AlertEvent struct {
	BaseEvent
	AlertID   int
	Level     string // "info", "success", "warning", "danger"
	Message   string
	Dismissed bool
}

// ResultsChangedEvent is published when a job's status differs from the
// previous fetch.
type ResultsChangedEvent struct {
	BaseEvent
	NotebookID string
	Filename   string
	OldStatus  string // empty when the job was not seen before
	NewStatus  string
}

// PollingStateEvent reports polling start and stop.
type PollingStateEvent struct {
	BaseEvent
	Polling bool
}

// DownloadEvent reports progress of a result download.
type DownloadEvent struct {
	BaseEvent
	NotebookID string
	Current    int64
	Total      int64 // -1 when unknown
	Done       bool
	Error      error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. Events for
// full subscriber buffers are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message string) {
	eb.Publish(&LogEvent{
		BaseEvent: newBase(EventLog),
		Level:     level,
		Message:   message,
	})
}

// PublishAlert is a convenience method for publishing alert events
func (eb *EventBus) PublishAlert(id int, level, message string, dismissed bool) {
	eb.Publish(&AlertEvent{
		BaseEvent: newBase(EventAlert),
		AlertID:   id,
		Level:     level,
		Message:   message,
		Dismissed: dismissed,
	})
}

// PublishResultsChanged is a convenience method for publishing status transitions
func (eb *EventBus) PublishResultsChanged(notebookID, filename, oldStatus, newStatus string) {
	eb.Publish(&ResultsChangedEvent{
		BaseEvent:  newBase(EventResultsChanged),
		NotebookID: notebookID,
		Filename:   filename,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
	})
}

// PublishPollingState is a convenience method for publishing polling state
func (eb *EventBus) PublishPollingState(polling bool) {
	eb.Publish(&PollingStateEvent{
		BaseEvent: newBase(EventPollingState),
		Polling:   polling,
	})
}

// PublishDownload is a convenience method for publishing download progress
func (eb *EventBus) PublishDownload(notebookID string, current, total int64, done bool, err error) {
	eb.Publish(&DownloadEvent{
		BaseEvent:  newBase(EventDownload),
		NotebookID: notebookID,
		Current:    current,
		Total:      total,
		Done:       done,
		Error:      err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
