package memory

import (
	"context"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/pkg/vector"

	"github.com/google/uuid"
)

type KnowledgeEntryRepository struct {
	store *Store
}

func NewKnowledgeEntryRepository(store *Store) contract.KnowledgeEntryRepository {
	return &KnowledgeEntryRepository{store: store}
}

func (r *KnowledgeEntryRepository) Create(ctx context.Context, entry *entity.KnowledgeEntry) error {
	return r.CreateBulk(ctx, []*entity.KnowledgeEntry{entry})
}

func (r *KnowledgeEntryRepository) CreateBulk(ctx context.Context, entries []*entity.KnowledgeEntry) error {
	now := time.Now()
	stored := make([]*entity.KnowledgeEntry, len(entries))
	for i, e := range entries {
		if e.Id == uuid.Nil {
			e.Id = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		stored[i] = copyEntry(e)
	}
	r.store.publish(func(current []*entity.KnowledgeEntry) []*entity.KnowledgeEntry {
		return append(current, stored...)
	})
	return nil
}

func (r *KnowledgeEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.publish(func(current []*entity.KnowledgeEntry) []*entity.KnowledgeEntry {
		out := current[:0]
		for _, e := range current {
			if e.Id != id {
				out = append(out, e)
			}
		}
		return out
	})
	return nil
}

func (r *KnowledgeEntryRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.KnowledgeEntry, error) {
	for _, e := range r.store.snapshot() {
		if e.Id == id {
			return copyEntry(e), nil
		}
	}
	return nil, nil
}

func (r *KnowledgeEntryRepository) Count(ctx context.Context, embeddingModel string) (int64, error) {
	var n int64
	for _, e := range r.store.snapshot() {
		if embeddingModel == "" || e.EmbeddingModel == embeddingModel {
			n++
		}
	}
	return n, nil
}

// SearchSimilar is an exact scan over the current snapshot.
func (r *KnowledgeEntryRepository) SearchSimilar(ctx context.Context, q contract.KnowledgeSearch) ([]*entity.ScoredKnowledgeEntry, error) {
	corpus := r.store.snapshot()

	candidates := make([]vector.Scored[*entity.KnowledgeEntry], 0, len(corpus))
	for _, e := range corpus {
		if q.EmbeddingModel != "" && e.EmbeddingModel != q.EmbeddingModel {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		sim, err := vector.CosineSimilarity(q.Embedding, e.Embedding)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, vector.Scored[*entity.KnowledgeEntry]{
			Item:  e,
			Key:   e.Id.String(),
			Score: sim,
		})
	}

	ranked := vector.TopK(candidates, q.Threshold, q.Limit)
	out := make([]*entity.ScoredKnowledgeEntry, len(ranked))
	for i, s := range ranked {
		out[i] = &entity.ScoredKnowledgeEntry{Entry: copyEntry(s.Item), Similarity: s.Score}
	}
	return out, nil
}
