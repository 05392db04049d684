package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RequestQueueKey is the single list every client LPUSHes encoded commands
// onto, and the engine's command loop BRPOPs from.
const RequestQueueKey = "engine:requests"

// RawCommand is the wire shape of one queued command: the encoded payload
// plus the client id the result should be published back to.
type RawCommand struct {
	ClientID string          `json:"client_id"`
	Payload  json.RawMessage `json:"payload"`
}

// QueuePublisher enqueues commands from the client side of the request
// queue.
type QueuePublisher struct {
	client *redis.Client
}

func NewQueuePublisher(client *redis.Client) *QueuePublisher {
	return &QueuePublisher{client: client}
}

func (p *QueuePublisher) Enqueue(ctx context.Context, clientID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis: marshal command: %w", err)
	}
	raw, err := json.Marshal(RawCommand{ClientID: clientID, Payload: body})
	if err != nil {
		return fmt.Errorf("redis: marshal envelope: %w", err)
	}
	return p.client.LPush(ctx, RequestQueueKey, raw).Err()
}

// QueueConsumer is the engine side: it blocks on BRPOP and hands each
// decoded command to handler, one at a time, in the order received. The
// engine's command loop calls this in its own goroutine; handler must not
// itself block on anything but ApplyCommand.
type QueueConsumer struct {
	client       *redis.Client
	pollTimeout  time.Duration
}

func NewQueueConsumer(client *redis.Client) *QueueConsumer {
	return &QueueConsumer{client: client, pollTimeout: 5 * time.Second}
}

// Run blocks until ctx is cancelled, invoking handler for every command
// popped off the queue.
func (c *QueueConsumer) Run(ctx context.Context, handler func(RawCommand)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := c.client.BRPop(ctx, c.pollTimeout, RequestQueueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("redis: brpop: %w", err)
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		var raw RawCommand
		if err := json.Unmarshal([]byte(res[1]), &raw); err != nil {
			continue
		}
		handler(raw)
	}
}
