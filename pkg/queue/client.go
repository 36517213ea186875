package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/martinsandoval/imagevault-backend/pkg/config"
)

// Handle identifies an enqueued job.
type Handle struct {
	ID    string
	Queue string
	Type  string
}

// Enqueuer is the surface the orchestrator depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) (Handle, error)
}

// Client wraps the asynq producer bound to the configured queue.
type Client struct {
	inner    *asynq.Client
	queue    string
	maxRetry int
}

// RedisOpt converts our redis configuration into asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisConnOpt {
	if cfg.URL != "" {
		if opt, err := asynq.ParseRedisURI(cfg.URL); err == nil {
			return opt
		}
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewClient constructs a queue producer.
func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig) (*Client, error) {
	if queueCfg.Name == "" {
		return nil, errors.New("queue name is required")
	}
	return &Client{
		inner:    asynq.NewClient(RedisOpt(redisCfg)),
		queue:    queueCfg.Name,
		maxRetry: queueCfg.MaxRetry,
	}, nil
}

// Enqueue submits the task onto the configured queue. Fire-and-forget: the
// returned handle is informational and failures are the caller's to surface.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task) (Handle, error) {
	if c == nil || c.inner == nil {
		return Handle{}, errors.New("queue client not initialized")
	}
	info, err := c.inner.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
	)
	if err != nil {
		return Handle{}, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return Handle{ID: info.ID, Queue: info.Queue, Type: info.Type}, nil
}

// Close releases the producer's redis connections.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
