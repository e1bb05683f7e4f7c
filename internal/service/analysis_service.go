package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/pipeline"
	"design-analysis-be/pkg/rag/prompt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAnalysisService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateAnalysisRequest) (*dto.CreateAnalysisResponse, error)
	Run(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.RunAnalysisResponse, error)
	Retry(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.RunAnalysisResponse, error)
	Cancel(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CancelAnalysisResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.AnalysisDetailResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.AnalysisSummaryResponse, error)
}

type analysisService struct {
	uowFactory   unitofwork.RepositoryFactory
	queue        IRunQueue
	orchestrator *pipeline.Orchestrator
	logger       logger.ILogger
}

func NewAnalysisService(
	uowFactory unitofwork.RepositoryFactory,
	queue IRunQueue,
	orchestrator *pipeline.Orchestrator,
	log logger.ILogger,
) IAnalysisService {
	return &analysisService{
		uowFactory:   uowFactory,
		queue:        queue,
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Create registers the images and intent of a new draft session. Nothing runs until Run.
func (s *analysisService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateAnalysisRequest) (*dto.CreateAnalysisResponse, error) {
	personas := make([]string, 0, len(req.Personas))
	for _, p := range req.Personas {
		p = strings.TrimSpace(p)
		if _, ok := prompt.LookupPersona(p); !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown persona %q", p))
		}
		personas = append(personas, p)
	}
	if req.IsComparative && len(req.ImageUrls) < 2 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "comparative analysis needs at least two images")
	}

	signals := make([]entity.Signal, 0, len(req.Signals))
	for _, sig := range req.Signals {
		signals = append(signals, entity.Signal{Kind: sig.Kind, Text: strings.TrimSpace(sig.Text)})
	}

	now := time.Now()
	session := &entity.AnalysisSession{
		Id:            uuid.New(),
		UserId:        userId,
		Status:        entity.SessionDraft,
		ImageUrls:     append([]string(nil), req.ImageUrls...),
		Goal:          strings.TrimSpace(req.Goal),
		Personas:      personas,
		IsComparative: req.IsComparative,
		Signals:       signals,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AnalysisSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("analysis", "Session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    userId.String(),
		"images":     len(session.ImageUrls),
	})
	return &dto.CreateAnalysisResponse{Id: session.Id, Status: string(session.Status)}, nil
}

func (s *analysisService) Run(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.RunAnalysisResponse, error) {
	return s.dispatch(ctx, userId, id, entity.SessionDraft)
}

// Retry queues a failed session again. Stages that already succeeded are reused by the orchestrator.
func (s *analysisService) Retry(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.RunAnalysisResponse, error) {
	return s.dispatch(ctx, userId, id, entity.SessionFailed)
}

func (s *analysisService) dispatch(ctx context.Context, userId, id uuid.UUID, want entity.SessionStatus) (*dto.RunAnalysisResponse, error) {
	session, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if session.Status != want {
		return nil, fmt.Errorf("%w: session is %s, expected %s", pipeline.ErrSessionNotRunnable, session.Status, want)
	}

	if err := s.queue.Publish(ctx, dto.RunAnalysisMessage{SessionId: id, UserId: userId, RequestedAt: time.Now()}); err != nil {
		return nil, fmt.Errorf("queue run request: %w", err)
	}

	s.logger.Info("analysis", "Run requested", map[string]interface{}{
		"session_id": id.String(),
		"attempt":    session.Attempt + 1,
	})
	return &dto.RunAnalysisResponse{Id: id, Status: "queued", Attempt: session.Attempt + 1}, nil
}

func (s *analysisService) Cancel(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.CancelAnalysisResponse, error) {
	cancelled, err := s.orchestrator.Cancel(ctx, id, userId)
	if err != nil {
		return nil, err
	}
	session, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return &dto.CancelAnalysisResponse{Id: id, Cancelled: cancelled, Status: string(session.Status)}, nil
}

func (s *analysisService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.AnalysisDetailResponse, error) {
	session, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.StageResultRepository().FindBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	synthesis, err := uow.SynthesisResultRepository().FindBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	score, err := uow.MaturityScoreRepository().FindBySession(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &dto.AnalysisDetailResponse{
		AnalysisSummaryResponse: summaryOf(session),
		ImageUrls:               session.ImageUrls,
		Personas:                session.Personas,
		IsComparative:           session.IsComparative,
		Stages:                  make([]dto.StageResultResponse, 0, len(rows)),
	}
	for _, r := range rows {
		res.Stages = append(res.Stages, dto.StageResultResponse{
			Stage:      string(r.Stage),
			Attempt:    r.Attempt,
			Status:     string(r.Status),
			StartedAt:  r.StartedAt,
			DurationMs: r.DurationMs,
			ErrorKind:  r.ErrorKind,
			Error:      r.ErrorText,
			Payload:    r.Payload,
		})
	}
	if synthesis != nil {
		res.Synthesis = &dto.SynthesisResponse{
			Summary:              synthesis.Summary,
			PersonaFeedback:      synthesis.PersonaFeedback,
			PriorityMatrix:       synthesis.PriorityMatrix,
			Annotations:          synthesis.Annotations,
			Citations:            synthesis.Citations,
			KnowledgeSourcesUsed: synthesis.KnowledgeSourcesUsed,
		}
	}
	if score != nil {
		res.Maturity = &dto.MaturityScoreResponse{
			Score:            score.Score,
			Level:            score.Level,
			CriticalCount:    score.CriticalCount,
			SuggestedCount:   score.SuggestedCount,
			EnhancementCount: score.EnhancementCount,
		}
	}
	return res, nil
}

func (s *analysisService) GetAll(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.AnalysisSummaryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.AnalysisSessionRepository().FindByUser(ctx, userId, limit, offset)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.AnalysisSummaryResponse, 0, len(sessions))
	for _, session := range sessions {
		res := summaryOf(session)
		result = append(result, &res)
	}
	return result, nil
}

func (s *analysisService) owned(ctx context.Context, userId, id uuid.UUID) (*entity.AnalysisSession, error) {
	session, err := s.uowFactory.NewUnitOfWork(ctx).AnalysisSessionRepository().FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, pipeline.ErrSessionNotFound
	}
	if session.UserId != userId {
		return nil, pipeline.ErrAccessDenied
	}
	return session, nil
}

func summaryOf(s *entity.AnalysisSession) dto.AnalysisSummaryResponse {
	return dto.AnalysisSummaryResponse{
		Id:          s.Id,
		Status:      string(s.Status),
		Goal:        s.Goal,
		ImageCount:  len(s.ImageUrls),
		Attempt:     s.Attempt,
		LastError:   s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CompletedAt: s.CompletedAt,
	}
}
