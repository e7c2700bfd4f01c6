// Package events publishes cache lifecycle events to RabbitMQ.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types, used as routing keys on the topic exchange.
const (
	TypeRefreshCompleted = "cache.refresh.completed"
	TypeEvictCompleted   = "cache.evict.completed"
	TypeVideoRemoved     = "cache.video.removed"
)

// Event describes something a sweep did to the cache.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	RunID      uuid.UUID      `json:"runId"`
	OccurredAt time.Time      `json:"occurredAt"`
	VideoIDs   []string       `json:"videoIds,omitempty"`
	Counts     map[string]int `json:"counts,omitempty"`
}

// New creates an event with a fresh ID.
func New(eventType string, runID uuid.UUID, at time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		RunID:      runID,
		OccurredAt: at,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NoopPublisher drops every event. It is used when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error { return nil }
