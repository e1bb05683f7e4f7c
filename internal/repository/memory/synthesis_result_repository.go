package memory

import (
	"context"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/contract"

	"github.com/google/uuid"
)

type SynthesisResultRepository struct {
	store *Store
}

func NewSynthesisResultRepository(store *Store) contract.SynthesisResultRepository {
	return &SynthesisResultRepository{store: store}
}

func (r *SynthesisResultRepository) Save(ctx context.Context, result *entity.SynthesisResult) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.syntheses[result.SessionId]; ok {
		result.Id = existing.Id
		result.CreatedAt = existing.CreatedAt
	}
	if result.Id == uuid.Nil {
		result.Id = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	stored := *result
	r.store.syntheses[result.SessionId] = &stored
	return nil
}

func (r *SynthesisResultRepository) FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.SynthesisResult, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	res, ok := r.store.syntheses[sessionId]
	if !ok {
		return nil, nil
	}
	out := *res
	return &out, nil
}
