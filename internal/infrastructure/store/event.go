package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the envelope published for every committed mutation.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int64           `json:"version"` // snapshot version that committed the change
}

// NewEvent wraps data in an envelope.
func NewEvent(aggregateID, aggregateType, eventType string, data any, version int64) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          raw,
		Timestamp:     time.Now().UTC(),
		Version:       version,
	}, nil
}

// Publisher delivers events to downstream consumers, keyed by aggregate id.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Emit wraps data in an envelope and publishes it under aggregateID. The
// change it describes is already committed, so failures are only logged.
func Emit(ctx context.Context, pub Publisher, logger *zap.Logger, aggregateID, aggregateType, eventType string, data any, version int64) {
	event, err := NewEvent(aggregateID, aggregateType, eventType, data, version)
	if err != nil {
		logger.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := pub.Publish(ctx, aggregateID, event); err != nil {
		logger.Warn("publish event",
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err))
	}
}
