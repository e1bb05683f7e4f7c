package memory

import (
	"context"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/contract"

	"github.com/google/uuid"
)

type MaturityScoreRepository struct {
	store *Store
}

func NewMaturityScoreRepository(store *Store) contract.MaturityScoreRepository {
	return &MaturityScoreRepository{store: store}
}

func (r *MaturityScoreRepository) CreateIfAbsent(ctx context.Context, score *entity.MaturityScore) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.scores[score.SessionId]; exists {
		return false, nil
	}
	if score.Id == uuid.Nil {
		score.Id = uuid.New()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}
	stored := *score
	r.store.scores[score.SessionId] = &stored
	return true, nil
}

func (r *MaturityScoreRepository) FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.MaturityScore, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s, ok := r.store.scores[sessionId]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}
