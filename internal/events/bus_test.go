package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tanakrit-dev/backend-pos/internal/events"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

type stubStore struct {
	lastTopic   string
	lastPayload []byte
}

func (s *stubStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (store.DomainEvent, error) {
	s.lastTopic = topic
	s.lastPayload = payload
	return store.DomainEvent{ID: 1, Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}, nil
}

type recordingNotifier struct {
	events []store.DomainEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev store.DomainEvent) error {
	n.events = append(n.events, ev)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	st := &stubStore{}
	notifier := &recordingNotifier{}
	bus := &events.Bus{Store: st, Notifiers: []events.Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), events.TopicSaleCommitted, "TXN-1", map[string]any{"total": 8025})
	require.NoError(t, err)
	require.Equal(t, events.TopicSaleCommitted, st.lastTopic)
	require.Len(t, notifier.events, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.EqualValues(t, 8025, payload["total"])
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "", "TXN-1", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicSaleCommitted, "", nil)
	require.Error(t, err)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("boom")}
	bus := &events.Bus{Store: &stubStore{}, Notifiers: []events.Notifier{notifier}}
	_, err := bus.Emit(context.Background(), events.TopicSaleCommitted, "TXN-1", nil)
	require.Error(t, err)
	require.Len(t, notifier.events, 1)
}
