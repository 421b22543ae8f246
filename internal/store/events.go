package store

import (
	"context"
	"fmt"
	"time"
)

// DomainEvent is a persisted record of something that happened.
type DomainEvent struct {
	ID          int64
	Topic       string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}

// InsertDomainEvent appends an event to the log.
func (s *Store) InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) (DomainEvent, error) {
	ev := DomainEvent{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, occurred_at
	`, topic, aggregateID, payload).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return DomainEvent{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}
