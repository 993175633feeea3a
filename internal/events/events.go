package events

import (
	"encoding/json"
	"sync"
	"time"

	"slotnik/internal/models"
)

const (
	EventReservationCreated   = "reservation_created"
	EventReservationConfirmed = "reservation_confirmed"
	EventReservationStarted   = "reservation_started"
	EventReservationCompleted = "reservation_completed"
	EventReservationCancelled = "reservation_cancelled"
	EventReservationDisputed  = "reservation_disputed"
)

// ReservationEventPayload is the minimal reservation snapshot for event
// consumers.
type ReservationEventPayload struct {
	ReservationID int64                    `json:"reservation_id"`
	HostID        int64                    `json:"host_id"`
	ClientID      int64                    `json:"client_id"`
	Date          time.Time                `json:"date"`
	StartMinute   int                      `json:"start_minute"`
	EndMinute     int                      `json:"end_minute"`
	Status        models.ReservationStatus `json:"status"`
	Amount        int64                    `json:"amount"`
	ActorID       int64                    `json:"actor_id,omitempty"`
	Reason        string                   `json:"reason,omitempty"`
	TransferError string                   `json:"transfer_error,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
