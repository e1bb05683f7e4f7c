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
	"design-analysis-be/pkg/embedding"
	"design-analysis-be/pkg/rag/retriever"
	"design-analysis-be/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	knowledgeChunkSize    = 1500
	knowledgeChunkOverlap = 200
)

type IKnowledgeService interface {
	Ingest(ctx context.Context, req *dto.IngestKnowledgeRequest) (*dto.IngestKnowledgeResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, req *dto.SearchKnowledgeRequest) (*dto.SearchKnowledgeResponse, error)
}

type knowledgeService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	retriever         *retriever.Retriever
	defaults          retriever.Query
	logger            logger.ILogger
}

func NewKnowledgeService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	r *retriever.Retriever,
	defaults retriever.Query,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		retriever:         r,
		defaults:          defaults,
		logger:            log,
	}
}

// Ingest embeds and stores entries. Long content is split into overlapping
// chunks, one entry each. Nothing is stored unless every chunk embeds.
func (s *knowledgeService) Ingest(ctx context.Context, req *dto.IngestKnowledgeRequest) (*dto.IngestKnowledgeResponse, error) {
	model := s.embeddingProvider.ModelVersion()
	now := time.Now()

	var entries []*entity.KnowledgeEntry
	for _, item := range req.Entries {
		chunks := utils.SplitText(strings.TrimSpace(item.Content), knowledgeChunkSize, knowledgeChunkOverlap)
		for i, chunk := range chunks {
			title := strings.TrimSpace(item.Title)
			if len(chunks) > 1 {
				title = fmt.Sprintf("%s (part %d/%d)", title, i+1, len(chunks))
			}

			res, err := s.embeddingProvider.Generate(ctx, title+"\n\n"+chunk, embedding.TaskRetrievalDocument)
			if err != nil {
				return nil, fmt.Errorf("embed %q: %w", title, err)
			}

			entries = append(entries, &entity.KnowledgeEntry{
				Id:             uuid.New(),
				Title:          title,
				Content:        chunk,
				Category:       strings.ToLower(strings.TrimSpace(item.Category)),
				Embedding:      res.Embedding.Values,
				EmbeddingModel: model,
				Source:         item.Source,
				FreshnessScore: item.FreshnessScore,
				CreatedAt:      now,
			})
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.KnowledgeEntryRepository().CreateBulk(ctx, entries); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Id)
	}
	s.logger.Info("knowledge", "Entries ingested", map[string]interface{}{
		"requested": len(req.Entries),
		"created":   len(entries),
		"model":     model,
	})
	return &dto.IngestKnowledgeResponse{Created: len(entries), Ids: ids, EmbeddingModel: model}, nil
}

func (s *knowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	entry, err := uow.KnowledgeEntryRepository().FindById(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fiber.NewError(fiber.StatusNotFound, "knowledge entry not found")
	}
	if err := uow.KnowledgeEntryRepository().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("knowledge", "Entry deleted", map[string]interface{}{"id": id.String(), "title": entry.Title})
	return nil
}

func (s *knowledgeService) Search(ctx context.Context, req *dto.SearchKnowledgeRequest) (*dto.SearchKnowledgeResponse, error) {
	q := s.defaults
	if req.Threshold != nil {
		q.Threshold = *req.Threshold
	}
	if req.TopK != nil {
		q.TopK = *req.TopK
	}
	if req.Category != "" {
		q.Category = strings.ToLower(req.Category)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	res := s.retriever.Retrieve(ctx, req.Query, q)
	out := &dto.SearchKnowledgeResponse{
		Matches:        make([]dto.KnowledgeMatchResponse, 0, len(res.Matches)),
		Degraded:       res.Degraded,
		DegradedReason: res.DegradedReason,
	}
	for _, m := range res.Matches {
		out.Matches = append(out.Matches, dto.KnowledgeMatchResponse{
			Id:         m.Entry.Id,
			Title:      m.Entry.Title,
			Category:   m.Entry.Category,
			Source:     m.Entry.Source,
			Content:    m.Entry.Content,
			Similarity: m.Similarity,
		})
	}
	return out, nil
}
