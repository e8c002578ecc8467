package events

import (
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventTransferProgress)

	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
		TaskID:    "task-1",
		Name:      "photo.jpg",
		Progress:  0.5,
	})

	select {
	case received := <-ch:
		te, ok := received.(*TransferEvent)
		if !ok {
			t.Fatal("Expected TransferEvent")
		}
		if te.Name != "photo.jpg" {
			t.Errorf("Expected name 'photo.jpg', got '%s'", te.Name)
		}
		if te.Progress != 0.5 {
			t.Errorf("Expected progress 0.5, got %f", te.Progress)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventNotification)
	ch2 := bus.Subscribe(EventNotification)

	bus.PublishNotification("hello", true, DismissNone)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d did not receive the event", i)
		}
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	pathCh := bus.Subscribe(EventPathChanged)
	logCh := bus.Subscribe(EventLog)

	bus.PublishPathChanged("/a", true)

	select {
	case <-pathCh:
	case <-time.After(100 * time.Millisecond):
		t.Error("Path subscriber didn't receive event")
	}

	select {
	case <-logCh:
		t.Error("Log subscriber received wrong event type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	allCh := bus.SubscribeAll()

	bus.PublishListChanged(3)
	bus.PublishLog(InfoLevel, "msg", nil)

	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
			count++
		case <-time.After(100 * time.Millisecond):
		}
	}

	if count != 2 {
		t.Errorf("Expected to receive 2 events, got %d", count)
	}
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(2)
	defer bus.Close()

	ch := bus.Subscribe(EventPanel)

	for i := 0; i < 10; i++ {
		bus.PublishPanel(true, "a.bin", i*10, "")
	}

	if got := bus.GetDroppedEventCount(); got != 8 {
		t.Errorf("Expected 8 dropped events, got %d", got)
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-time.After(10 * time.Millisecond):
			goto done
		}
	}
done:

	if count != 2 {
		t.Errorf("Expected 2 buffered events, got %d", count)
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)

	ch := bus.Subscribe(EventPanel)

	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after bus.Close()")
	}

	// Publishing after close should not panic
	bus.PublishPanel(false, "", 0, "")

	// Subscribing after close yields a closed channel
	if _, ok := <-bus.Subscribe(EventPanel); ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}

func TestEventBus_NilIsNoop(t *testing.T) {
	var bus *EventBus
	bus.PublishNotification("ignored", true, DismissNone)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventListChanged)
	bus.Unsubscribe(EventListChanged, ch)

	bus.PublishListChanged(1)

	select {
	case <-ch:
		t.Error("Unsubscribed channel received an event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level %d: expected %s, got %s", tt.level, tt.expected, got)
		}
	}
}

func TestConvenienceMethods(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	notifyCh := bus.Subscribe(EventNotification)
	panelCh := bus.Subscribe(EventPanel)

	bus.PublishNotification("", false, DismissBackdrop)

	select {
	case event := <-notifyCh:
		n, ok := event.(*NotificationEvent)
		if !ok {
			t.Fatal("Expected NotificationEvent")
		}
		if n.Visible || n.Reason != DismissBackdrop {
			t.Errorf("Expected hidden by backdrop, got visible=%v reason=%q", n.Visible, n.Reason)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for notification event")
	}

	bus.PublishPanel(true, "x.txt", 75, "75%")

	select {
	case event := <-panelCh:
		p, ok := event.(*PanelEvent)
		if !ok {
			t.Fatal("Expected PanelEvent")
		}
		if p.Text != "75%" || p.Name != "x.txt" {
			t.Errorf("Unexpected panel event: %+v", p)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for panel event")
	}
}
