package implementation

import (
	"context"
	"errors"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/mapper"
	"design-analysis-be/internal/model"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeEntryMapper
}

func NewKnowledgeEntryRepository(db *gorm.DB) contract.KnowledgeEntryRepository {
	return &KnowledgeEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeEntryMapper(),
	}
}

func (r *KnowledgeEntryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *KnowledgeEntryRepositoryImpl) Create(ctx context.Context, entry *entity.KnowledgeEntry) error {
	m := r.mapper.ToModel(entry)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*entry = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeEntryRepositoryImpl) CreateBulk(ctx context.Context, entries []*entity.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]*model.KnowledgeEntry, len(entries))
	for i, e := range entries {
		models[i] = r.mapper.ToModel(e)
	}

	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}

	for i, m := range models {
		*entries[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *KnowledgeEntryRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.KnowledgeEntry{}, id).Error
}

func (r *KnowledgeEntryRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.KnowledgeEntry, error) {
	var m model.KnowledgeEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *KnowledgeEntryRepositoryImpl) Count(ctx context.Context, embeddingModel string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.KnowledgeEntry{})
	if embeddingModel != "" {
		query = r.applySpecifications(query, specification.ByEmbeddingModel{Model: embeddingModel})
	}
	err := query.Count(&count).Error
	return count, err
}

// SearchSimilar ranks with pgvector cosine distance. Similarity is 1 - distance,
// so the HNSW index on vector_cosine_ops serves the ORDER BY.
func (r *KnowledgeEntryRepositoryImpl) SearchSimilar(ctx context.Context, q contract.KnowledgeSearch) ([]*entity.ScoredKnowledgeEntry, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	type result struct {
		model.KnowledgeEntry
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(q.Embedding)

	query := r.db.WithContext(ctx).
		Table("knowledge_entries").
		Select("knowledge_entries.*, 1 - (embedding <=> ?) AS similarity", queryVector).
		Where("knowledge_entries.deleted_at IS NULL")
	query = r.applySpecifications(query,
		specification.ByEmbeddingModel{Model: q.EmbeddingModel},
		specification.ByCategory{Category: q.Category},
	)

	err := query.
		Where("1 - (embedding <=> ?) >= ?", queryVector, q.Threshold).
		Order("similarity DESC").
		Order("id ASC").
		Limit(q.Limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredKnowledgeEntry, len(results))
	for i := range results {
		scored[i] = &entity.ScoredKnowledgeEntry{
			Entry:      r.mapper.ToEntity(&results[i].KnowledgeEntry),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
