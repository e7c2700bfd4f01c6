package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ErrSweepPending is returned when an identical sweep is already queued.
var ErrSweepPending = errors.New("sweep already pending")

// Client wraps asynq client for enqueueing manual sweeps
type Client struct {
	asynqClient *asynq.Client
	logger      *zap.Logger
}

// NewClient creates a new queue client
func NewClient(redisOpt asynq.RedisConnOpt, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{asynqClient: asynq.NewClient(redisOpt), logger: logger}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueSweep queues a manual run of sweep ("refresh" or "evict") for the
// worker pool and returns the task ID.
func (c *Client) EnqueueSweep(ctx context.Context, sweep string) (string, error) {
	taskType, err := TaskTypeFor(sweep)
	if err != nil {
		return "", err
	}

	task, err := NewSweepTask(taskType, TriggerManual)
	if err != nil {
		return "", err
	}

	info, err := c.asynqClient.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", ErrSweepPending
	}
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("Enqueued manual sweep",
		zap.String("type", taskType),
		zap.String("taskId", info.ID),
	)
	return info.ID, nil
}
