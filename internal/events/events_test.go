package events

import (
	"encoding/json"
	"testing"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventReservationCreated, func(e *Event) error {
		received = append(received, e)
		return nil
	})

	payload := ReservationEventPayload{
		ReservationID: 1,
		HostID:        10,
		ClientID:      100,
		StartMinute:   600,
		EndMinute:     690,
		Status:        models.StatusPending,
		Amount:        7500,
	}
	require.NoError(t, bus.PublishJSON(EventReservationCreated, payload))

	require.Len(t, received, 1)
	assert.Equal(t, EventReservationCreated, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var decoded ReservationEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &decoded))
	assert.Equal(t, payload.ReservationID, decoded.ReservationID)
	assert.Equal(t, payload.Status, decoded.Status)
}

func TestSubscribeIsPerType(t *testing.T) {
	bus := NewEventBus()

	var created, cancelled int
	bus.Subscribe(EventReservationCreated, func(e *Event) error { created++; return nil })
	bus.Subscribe(EventReservationCancelled, func(e *Event) error { cancelled++; return nil })

	require.NoError(t, bus.PublishJSON(EventReservationCreated, ReservationEventPayload{}))
	require.NoError(t, bus.PublishJSON(EventReservationCreated, ReservationEventPayload{}))
	require.NoError(t, bus.PublishJSON(EventReservationCancelled, ReservationEventPayload{}))

	assert.Equal(t, 2, created)
	assert.Equal(t, 1, cancelled)
}

func TestPublishJSONNilBus(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventReservationCreated, ReservationEventPayload{}))
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.PublishJSON("unknown_event", ReservationEventPayload{}))
}
