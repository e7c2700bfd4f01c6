package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ScheduleConfig holds the cron specs of both sweeps and the zone they are
// evaluated in.
type ScheduleConfig struct {
	RefreshSchedule string
	EvictSchedule   string
	Timezone        string
}

// Scheduler enqueues sweep tasks on their cron schedules.
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *zap.Logger
}

// NewScheduler registers both sweeps. An empty cron expression disables that sweep.
func NewScheduler(redisOpt asynq.RedisConnOpt, cfg ScheduleConfig, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
	}

	s := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: loc,
		Logger:   logger.Sugar(),
		LogLevel: asynq.WarnLevel,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Warn("Failed to enqueue scheduled sweep", zap.Error(err))
				return
			}
			logger.Info("Enqueued scheduled sweep",
				zap.String("type", info.Type),
				zap.String("taskId", info.ID),
			)
		},
	})

	entries := []struct {
		cron     string
		taskType string
	}{
		{cfg.RefreshSchedule, TypeRefreshCache},
		{cfg.EvictSchedule, TypeEvictCache},
	}
	for _, e := range entries {
		if e.cron == "" {
			logger.Info("Sweep schedule disabled", zap.String("type", e.taskType))
			continue
		}

		task, err := NewSweepTask(e.taskType, TriggerSchedule)
		if err != nil {
			return nil, err
		}
		id, err := s.Register(e.cron, task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s schedule %q: %w", e.taskType, e.cron, err)
		}

		logger.Info("Registered sweep schedule",
			zap.String("type", e.taskType),
			zap.String("cron", e.cron),
			zap.String("timezone", loc.String()),
			zap.String("entryId", id),
		)
	}

	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins enqueuing without blocking.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("Shutting down sweep scheduler")
	s.scheduler.Shutdown()
}
