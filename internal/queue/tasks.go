package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeRefreshCache = "cache:refresh"
	TypeEvictCache   = "cache:evict"
)

// QueueMaintenance is the queue sweep tasks run on.
const QueueMaintenance = "maintenance"

// Trigger sources recorded in task payloads.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

const sweepTimeout = 15 * time.Minute

// SweepPayload is the payload of refresh and evict tasks
type SweepPayload struct {
	Trigger string `json:"trigger"`
}

// Marshal serializes the payload to JSON
func (p *SweepPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalSweepPayload deserializes JSON to payload. An empty body is a
// scheduled run.
func UnmarshalSweepPayload(data []byte) (*SweepPayload, error) {
	payload := SweepPayload{Trigger: TriggerSchedule}
	if len(data) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}

// TaskTypeFor maps a sweep name ("refresh" or "evict") to its task type.
func TaskTypeFor(sweep string) (string, error) {
	switch sweep {
	case "refresh":
		return TypeRefreshCache, nil
	case "evict":
		return TypeEvictCache, nil
	default:
		return "", fmt.Errorf("unknown sweep %q (expected 'refresh' or 'evict')", sweep)
	}
}

// NewSweepTask builds a sweep task. Sweeps are not retried: the next
// scheduled run picks up whatever this one missed. Unique keeps a slow run
// from overlapping the next trigger.
func NewSweepTask(taskType, trigger string) (*asynq.Task, error) {
	payload, err := (&SweepPayload{Trigger: trigger}).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return asynq.NewTask(taskType, payload,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(0),
		asynq.Timeout(sweepTimeout),
		asynq.Unique(time.Hour),
	), nil
}
