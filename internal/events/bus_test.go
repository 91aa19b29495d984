package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/events"
)

type stubStore struct {
	topic       string
	aggregateID string
	payload     []byte
}

func (s *stubStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	s.topic = topic
	s.aggregateID = aggregateID
	s.payload = payload
	return events.Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	billID := uuid.NewString()
	event, err := bus.Emit(context.Background(), events.TopicBillCreated, billID, map[string]any{"grandTotal": 162.4})
	require.NoError(t, err)
	require.Equal(t, events.TopicBillCreated, store.topic)
	require.Equal(t, billID, store.aggregateID)
	require.JSONEq(t, `{"grandTotal":162.4}`, string(store.payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, 162.4, decoded["grandTotal"])
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	first := &captureNotifier{err: errors.New("queue down")}
	second := &captureNotifier{}
	bus := events.Bus{Store: &stubStore{}, Notifiers: []events.Notifier{first, second}}

	ev, err := bus.Emit(context.Background(), events.TopicStockLow, "med-1", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue down")
	require.NotEmpty(t, ev.ID)
	require.Len(t, second.events, 1)
	require.JSONEq(t, `{}`, string(ev.Payload))
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), " ", "x", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicBillCreated, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicBillCreated, "x", "not json")
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(context.Background(), events.TopicBillCreated, "x", nil)
	require.Error(t, err)
}
