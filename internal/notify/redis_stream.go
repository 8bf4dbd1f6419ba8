package notify

import (
	"context"
	"encoding/json"
	"fmt"

	commonredis "examseat/common/redis"

	"github.com/go-redis/redis/v8"
)

// DefaultStream 名单事件 stream
const DefaultStream = "examseat:roster:events"

// RedisStreamPublisher 发布到 Redis Streams（字段 data=JSON, timestamp）
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, ev Event) error {
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, ev, p.maxLen); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", ev.Type, p.stream, err)
	}
	return nil
}

// Recent 返回最近 limit 条事件（按时间正序）
func (p *RedisStreamPublisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	msgs, err := commonredis.ReadRange(ctx, p.client, p.stream, "-", "+")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.stream, err)
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
