package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/dirsync/internal/model"
)

// DefaultStream is the stream events are appended to.
const DefaultStream = "dirsync:events"

// RedisStreamSink appends events to a Redis stream.
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

var _ model.EventSink = (*RedisStreamSink)(nil)

// NewRedisStreamSink creates a sink writing to stream. A positive maxLen caps
// the stream length approximately.
func NewRedisStreamSink(client redis.Cmdable, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish implements model.EventSink.
func (s *RedisStreamSink) Publish(ctx context.Context, event model.Event) error {
	if event == nil {
		return errors.New("event is nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	meta := event.Meta()
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id":   meta.EventID,
			"event_type": string(event.Type()),
			"payload":    string(payload),
			"created_at": meta.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add event to stream: %w", err)
	}
	return nil
}
