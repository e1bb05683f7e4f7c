package mapper

import (
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeEntryMapper struct{}

func NewKnowledgeEntryMapper() *KnowledgeEntryMapper {
	return &KnowledgeEntryMapper{}
}

func (m *KnowledgeEntryMapper) ToEntity(e *model.KnowledgeEntry) *entity.KnowledgeEntry {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.KnowledgeEntry{
		Id:             e.Id,
		Title:          e.Title,
		Content:        e.Content,
		Category:       e.Category,
		Embedding:      e.Embedding.Slice(),
		EmbeddingModel: e.EmbeddingModel,
		Source:         e.Source,
		FreshnessScore: e.FreshnessScore,
		CreatedAt:      e.CreatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *KnowledgeEntryMapper) ToModel(e *entity.KnowledgeEntry) *model.KnowledgeEntry {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	}

	return &model.KnowledgeEntry{
		Id:             e.Id,
		Title:          e.Title,
		Content:        e.Content,
		Category:       e.Category,
		Embedding:      pgvector.NewVector(e.Embedding),
		EmbeddingModel: e.EmbeddingModel,
		Source:         e.Source,
		FreshnessScore: e.FreshnessScore,
		CreatedAt:      e.CreatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *KnowledgeEntryMapper) ToEntities(entries []*model.KnowledgeEntry) []*entity.KnowledgeEntry {
	entities := make([]*entity.KnowledgeEntry, len(entries))
	for i, e := range entries {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
