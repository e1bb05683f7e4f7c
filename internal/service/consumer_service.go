package service

import (
	"context"
	"errors"

	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/pkg/pipeline"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	queue        IRunQueue
	orchestrator *pipeline.Orchestrator
	workers      int
	logger       logger.ILogger
}

func NewConsumerService(queue IRunQueue, orchestrator *pipeline.Orchestrator, workers int, log logger.ILogger) IConsumerService {
	if workers < 1 {
		workers = 1
	}
	return &consumerService{
		queue:        queue,
		orchestrator: orchestrator,
		workers:      workers,
		logger:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	cs.logger.Info("consumer", "Consuming run requests", map[string]interface{}{"workers": cs.workers})
	return cs.queue.Consume(ctx, cs.workers, cs.handle)
}

// handle runs one session. Pipeline outcomes, failed stages included, are
// final for the message; only unexpected errors ask for redelivery.
func (cs *consumerService) handle(ctx context.Context, msg dto.RunAnalysisMessage) error {
	err := cs.orchestrator.Run(ctx, msg.SessionId)
	details := map[string]interface{}{"session_id": msg.SessionId.String()}

	var stageErr *pipeline.StageError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &stageErr),
		errors.Is(err, pipeline.ErrRunCancelled),
		errors.Is(err, pipeline.ErrRunSuperseded):
		details["error"] = err.Error()
		cs.logger.Info("consumer", "Run ended without completion", details)
		return nil
	case errors.Is(err, pipeline.ErrSessionBusy),
		errors.Is(err, pipeline.ErrSessionNotFound),
		errors.Is(err, pipeline.ErrSessionNotRunnable):
		details["error"] = err.Error()
		cs.logger.Warn("consumer", "Run request dropped", details)
		return nil
	default:
		details["error"] = err.Error()
		cs.logger.Error("consumer", "Run failed unexpectedly", details)
		return err
	}
}
