package service

import (
	"context"
	"time"

	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/maturity"
	"design-analysis-be/pkg/pipeline"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// BackfillReport counts what one backfill pass did.
type BackfillReport struct {
	Scanned int
	Created int
	Skipped int
	Failed  int
}

type IMaintenanceService interface {
	ResetStuckSessions(ctx context.Context, staleAfter time.Duration) (int, error)
	BackfillMaturity(ctx context.Context) (*BackfillReport, error)
}

type maintenanceService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator *pipeline.Orchestrator
	scorer       *maturity.Scorer
	batchSize    int
	interval     time.Duration
	logger       logger.ILogger
}

func NewMaintenanceService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *pipeline.Orchestrator,
	scorer *maturity.Scorer,
	cfg pipeline.Config,
	log logger.ILogger,
) IMaintenanceService {
	return &maintenanceService{
		uowFactory:   uowFactory,
		orchestrator: orchestrator,
		scorer:       scorer,
		batchSize:    cfg.BackfillBatchSize,
		interval:     cfg.BackfillInterval,
		logger:       log,
	}
}

// ResetStuckSessions fails sessions that stopped heart-beating. staleAfter <= 0 uses the configured window.
func (s *maintenanceService) ResetStuckSessions(ctx context.Context, staleAfter time.Duration) (int, error) {
	count, err := s.orchestrator.ResetStuck(ctx, staleAfter)
	if err != nil {
		return count, err
	}
	s.logger.Info("maintenance", "Stuck sessions reset", map[string]interface{}{"count": count})
	return count, nil
}

// BackfillMaturity scores completed sessions that have none. Each session is
// handled on its own; a failure is counted and the pass continues. Inserts are
// idempotent, so a second pass creates nothing.
func (s *maintenanceService) BackfillMaturity(ctx context.Context) (*BackfillReport, error) {
	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	report := &BackfillReport{}
	// sessions left unscored by this pass, so the next query does not return them forever
	passed := make(map[uuid.UUID]struct{})

	for {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		batch, err := uow.AnalysisSessionRepository().FindCompletedWithoutScore(ctx, s.batchSize+len(passed))
		if err != nil {
			return report, err
		}

		fresh := 0
		for _, session := range batch {
			if _, seen := passed[session.Id]; seen {
				continue
			}
			fresh++
			if err := limiter.Wait(ctx); err != nil {
				return report, err
			}
			report.Scanned++

			created, err := s.backfillOne(ctx, uow, session.Id)
			switch {
			case err != nil:
				report.Failed++
				passed[session.Id] = struct{}{}
				s.logger.Warn("maturity", "Backfill failed for session", map[string]interface{}{
					"session_id": session.Id.String(),
					"error":      err.Error(),
				})
			case created:
				report.Created++
			default:
				report.Skipped++
				passed[session.Id] = struct{}{}
			}
		}
		if fresh == 0 {
			break
		}
	}

	s.logger.Info("maturity", "Backfill finished", map[string]interface{}{
		"scanned": report.Scanned,
		"created": report.Created,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
	return report, nil
}

func (s *maintenanceService) backfillOne(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) (bool, error) {
	result, err := uow.SynthesisResultRepository().FindBySession(ctx, sessionId)
	if err != nil {
		return false, err
	}
	if result == nil {
		// completed without a synthesis; nothing to score
		return false, nil
	}
	return uow.MaturityScoreRepository().CreateIfAbsent(ctx, s.scorer.Score(result))
}
