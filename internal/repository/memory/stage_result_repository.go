package memory

import (
	"context"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/contract"

	"github.com/google/uuid"
)

type StageResultRepository struct {
	store *Store
}

func NewStageResultRepository(store *Store) contract.StageResultRepository {
	return &StageResultRepository{store: store}
}

func (r *StageResultRepository) Append(ctx context.Context, result *entity.StageResult) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if result.Id == uuid.Nil {
		result.Id = uuid.New()
	}
	r.store.sequence++
	result.Sequence = r.store.sequence
	r.store.stages[result.SessionId] = append(r.store.stages[result.SessionId], copyStage(result))
	return nil
}

func (r *StageResultRepository) Finalize(ctx context.Context, id uuid.UUID, outcome contract.StageOutcome) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, rows := range r.store.stages {
		for _, row := range rows {
			if row.Id != id {
				continue
			}
			if row.Status != entity.StageRunning {
				return false, nil
			}
			row.Status = outcome.Status
			row.DurationMs = outcome.DurationMs
			row.ErrorKind = outcome.ErrorKind
			row.ErrorText = outcome.ErrorText
			if len(outcome.Payload) > 0 {
				row.Payload = append([]byte(nil), outcome.Payload...)
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *StageResultRepository) FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.StageResult, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := r.store.stages[sessionId]
	out := make([]*entity.StageResult, len(rows))
	for i, row := range rows {
		out[i] = copyStage(row)
	}
	return out, nil
}

func (r *StageResultRepository) AbandonRunning(ctx context.Context, sessionId uuid.UUID, reason string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, row := range r.store.stages[sessionId] {
		if row.Status == entity.StageRunning {
			row.Status = entity.StageError
			row.ErrorKind = "abandoned"
			row.ErrorText = reason
			n++
		}
	}
	return n, nil
}
