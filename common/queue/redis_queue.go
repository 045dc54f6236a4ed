package queue

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mushee/scorelib/common/logger"
	redisclient "github.com/mushee/scorelib/common/redis"
)

// consumerGroup is the shared group name; every service replica joins
// it so each event is handled once across the deployment.
const consumerGroup = "scorelib"

// RedisQueue publishes events to Redis streams so they survive the
// process and fan out to external consumers.
type RedisQueue struct {
	client   *redisclient.Client
	prefix   string
	maxLen   int64
	consumer string
	log      *logger.Logger
}

// NewRedisQueue creates a stream-backed queue. prefix namespaces the
// stream keys; maxLen caps each stream with approximate trimming.
func NewRedisQueue(client *redisclient.Client, prefix string, maxLen int64, log *logger.Logger) *RedisQueue {
	host, err := os.Hostname()
	if err != nil {
		host = "scorelib"
	}

	return &RedisQueue{
		client:   client,
		prefix:   prefix,
		maxLen:   maxLen,
		consumer: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
		log:      log,
	}
}

func (q *RedisQueue) stream(topic string) string {
	return q.prefix + topic
}

// Publish appends a message to the topic's stream
func (q *RedisQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	_, err := q.client.AddToStream(ctx, q.stream(topic), q.maxLen, map[string]interface{}{
		"key":   key,
		"value": string(message),
	})
	if err != nil {
		return fmt.Errorf("publish to stream %s: %w", q.stream(topic), err)
	}
	return nil
}

// Subscribe consumes the topic's stream through the shared consumer
// group, acknowledging messages the handler accepts.
func (q *RedisQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	stream := q.stream(topic)

	if err := q.client.CreateStreamGroup(ctx, stream, consumerGroup); err != nil {
		return fmt.Errorf("create consumer group for %s: %w", stream, err)
	}

	q.log.Info("subscribing to stream", "stream", stream, "consumer", q.consumer)

	go func() {
		for {
			if ctx.Err() != nil {
				q.log.Info("stream subscription cancelled", "stream", stream)
				return
			}

			streams, err := q.client.ReadFromStreamGroup(ctx, consumerGroup, q.consumer, stream, 16, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				q.log.Error("stream read failed", "stream", stream, "error", err)
				time.Sleep(time.Second)
				continue
			}

			for _, s := range streams {
				for _, msg := range s.Messages {
					key, _ := msg.Values["key"].(string)
					value, _ := msg.Values["value"].(string)

					if err := handler(ctx, key, []byte(value)); err != nil {
						q.log.Error("message handler error", "stream", stream, "id", msg.ID, "error", err)
						continue
					}

					if err := q.client.AckStreamMessage(ctx, stream, consumerGroup, msg.ID); err != nil {
						q.log.Warn("ack failed", "stream", stream, "id", msg.ID, "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Close is a no-op; the underlying Redis client is owned by the container.
func (q *RedisQueue) Close() error {
	return nil
}
