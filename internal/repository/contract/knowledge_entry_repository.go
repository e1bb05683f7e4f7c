package contract

import (
	"context"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

// KnowledgeSearch is a bounded nearest-neighbour query over the corpus.
type KnowledgeSearch struct {
	Embedding      []float32
	EmbeddingModel string
	Threshold      float64
	Limit          int
	Category       string // optional
}

// KnowledgeEntryRepository has no Update: entries are immutable once stored.
type KnowledgeEntryRepository interface {
	Create(ctx context.Context, entry *entity.KnowledgeEntry) error
	CreateBulk(ctx context.Context, entries []*entity.KnowledgeEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.KnowledgeEntry, error)
	Count(ctx context.Context, embeddingModel string) (int64, error)
	// SearchSimilar returns entries with similarity >= Threshold, ordered by
	// similarity descending then id ascending.
	SearchSimilar(ctx context.Context, query KnowledgeSearch) ([]*entity.ScoredKnowledgeEntry, error)
}
