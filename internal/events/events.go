// Package events carries state changes from the client components to
// whatever renders them.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmmpc/lisfy/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	// Browser state
	EventPathChanged  EventType = "path_changed"  // Listing applied, path and back state updated
	EventListChanged  EventType = "list_changed"  // Rows cleared or appended
	EventNotification EventType = "notification"  // Modal shown or dismissed
	EventPanel        EventType = "upload_panel"  // Bottom panel shown, updated or hidden

	// Transfer lifecycle
	EventTransferStarted   EventType = "transfer_started"
	EventTransferProgress  EventType = "transfer_progress"
	EventTransferCompleted EventType = "transfer_completed"
	EventTransferFailed    EventType = "transfer_failed"
	EventTransferCancelled EventType = "transfer_cancelled"
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
	Error   error
}

// PathChangedEvent is published after a listing was applied.
type PathChangedEvent struct {
	BaseEvent
	Path        string
	BackEnabled bool
}

// ListChangedEvent is published after rows were cleared or appended.
type ListChangedEvent struct {
	BaseEvent
	Count int
}

// DismissReason says how the modal was closed.
type DismissReason string

const (
	DismissNone     DismissReason = ""
	DismissClose    DismissReason = "close"
	DismissBackdrop DismissReason = "backdrop"
)

// NotificationEvent mirrors the modal: Visible with Text after Show,
// not Visible with a Reason after Dismiss.
type NotificationEvent struct {
	BaseEvent
	Text    string
	Visible bool
	Reason  DismissReason
}

// PanelEvent mirrors the bottom upload panel.
type PanelEvent struct {
	BaseEvent
	Visible bool
	Name    string
	Percent int
	Text    string // "<n>%"
}

// TransferEvent represents one upload or download session.
type TransferEvent struct {
	BaseEvent
	TaskID   string
	TaskType string  // "upload" or "download"
	Name     string  // Display name (filename)
	Size     int64   // Total bytes, 0 if unknown
	Loaded   int64   // Bytes sent so far
	Progress float64 // 0.0 to 1.0
	Error    error
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

// Publish sends an event to all subscribers without blocking. Events that
// do not fit a subscriber's buffer are dropped and counted.
// A nil bus is valid and discards everything.
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
func (eb *EventBus) PublishLog(level LogLevel, message string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: newBase(EventLog),
		Level:     level,
		Message:   message,
		Error:     err,
	})
}

// PublishPathChanged announces a new current path.
func (eb *EventBus) PublishPathChanged(path string, backEnabled bool) {
	eb.Publish(&PathChangedEvent{
		BaseEvent:   newBase(EventPathChanged),
		Path:        path,
		BackEnabled: backEnabled,
	})
}

// PublishListChanged announces the new row count.
func (eb *EventBus) PublishListChanged(count int) {
	eb.Publish(&ListChangedEvent{
		BaseEvent: newBase(EventListChanged),
		Count:     count,
	})
}

// PublishNotification announces a modal change.
func (eb *EventBus) PublishNotification(text string, visible bool, reason DismissReason) {
	eb.Publish(&NotificationEvent{
		BaseEvent: newBase(EventNotification),
		Text:      text,
		Visible:   visible,
		Reason:    reason,
	})
}

// PublishPanel announces a bottom panel change.
func (eb *EventBus) PublishPanel(visible bool, name string, percent int, text string) {
	eb.Publish(&PanelEvent{
		BaseEvent: newBase(EventPanel),
		Visible:   visible,
		Name:      name,
		Percent:   percent,
		Text:      text,
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
