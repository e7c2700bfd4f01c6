package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/songtrybe/youtube-metadata-cache/internal/service"
)

// Sweeper runs one cache sweep.
type Sweeper interface {
	Run(ctx context.Context) *service.SweepResult
}

// SweepHandler runs a sweep for each task it receives.
type SweepHandler struct {
	sweeper Sweeper
	logger  *zap.Logger
}

// NewSweepHandler creates a handler for sweeper.
func NewSweepHandler(sweeper Sweeper, logger *zap.Logger) *SweepHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepHandler{sweeper: sweeper, logger: logger}
}

// ProcessTask implements asynq.Handler. A failed sweep is reported to asynq
// but never retried.
func (h *SweepHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalSweepPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("Running sweep task",
		zap.String("type", task.Type()),
		zap.String("trigger", payload.Trigger),
	)

	res := h.sweeper.Run(ctx)
	if res.Err != nil {
		return fmt.Errorf("sweep %s run %s: %w: %w", res.Sweep, res.RunID, res.Err, asynq.SkipRetry)
	}
	return nil
}

// Server wraps asynq server for processing sweep tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	logger      *zap.Logger
}

// NewServer creates a server that runs refresher and evictor tasks.
func NewServer(redisOpt asynq.RedisConnOpt, concurrency int, refresher, evictor Sweeper, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueMaintenance: 1,
			},
			Logger:   logger.Sugar(),
			LogLevel: asynq.WarnLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(TypeRefreshCache, NewSweepHandler(refresher, logger))
	mux.Handle(TypeEvictCache, NewSweepHandler(evictor, logger))

	return &Server{
		asynqServer: srv,
		mux:         mux,
		logger:      logger,
	}
}

// Start starts processing tasks without blocking.
func (s *Server) Start() error {
	s.logger.Info("Starting sweep task server")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.logger.Info("Shutting down sweep task server")
	s.asynqServer.Shutdown()
}
