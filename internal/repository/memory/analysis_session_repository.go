package memory

import (
	"context"
	"sort"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/contract"

	"github.com/google/uuid"
)

type AnalysisSessionRepository struct {
	store *Store
}

func NewAnalysisSessionRepository(store *Store) contract.AnalysisSessionRepository {
	return &AnalysisSessionRepository{store: store}
}

func (r *AnalysisSessionRepository) Create(ctx context.Context, session *entity.AnalysisSession) error {
	now := time.Now()
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sessions[session.Id] = copySession(session)
	return nil
}

func (r *AnalysisSessionRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.AnalysisSession, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return copySession(r.store.sessions[id]), nil
}

func (r *AnalysisSessionRepository) FindByUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.AnalysisSession, error) {
	out := r.filter(func(s *entity.AnalysisSession) bool { return s.UserId == userId })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return []*entity.AnalysisSession{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AnalysisSessionRepository) Transition(ctx context.Context, id uuid.UUID, from []entity.SessionStatus, patch contract.SessionPatch) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok || !statusIn(s.Status, from) {
		return false, nil
	}

	s.Status = patch.Status
	s.UpdatedAt = patch.UpdatedAt
	if patch.Attempt != nil {
		s.Attempt = *patch.Attempt
	}
	if patch.LastError != nil {
		s.LastError = *patch.LastError
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		s.CompletedAt = &t
	}
	if patch.ClearCancel {
		s.CancelRequestedAt = nil
	}
	if patch.ClearCommit {
		s.CommittedAt = nil
	}
	return true, nil
}

func (r *AnalysisSessionRepository) RequestCancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok || s.Status != entity.SessionProcessing || s.CommittedAt != nil {
		return false, nil
	}
	t := at
	s.CancelRequestedAt = &t
	return true, nil
}

func (r *AnalysisSessionRepository) Commit(ctx context.Context, id uuid.UUID, attempt int, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok || s.Status != entity.SessionProcessing || s.Attempt != attempt || s.CancelRequestedAt != nil {
		return false, nil
	}
	t := at
	s.CommittedAt = &t
	s.UpdatedAt = at
	return true, nil
}

func (r *AnalysisSessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if s, ok := r.store.sessions[id]; ok && s.Status == entity.SessionProcessing {
		s.UpdatedAt = at
	}
	return nil
}

func (r *AnalysisSessionRepository) FindStuck(ctx context.Context, heartbeatBefore time.Time) ([]*entity.AnalysisSession, error) {
	out := r.filter(func(s *entity.AnalysisSession) bool {
		return s.Status == entity.SessionProcessing && s.UpdatedAt.Before(heartbeatBefore)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *AnalysisSessionRepository) FindCompletedWithoutScore(ctx context.Context, limit int) ([]*entity.AnalysisSession, error) {
	r.store.mu.RLock()
	out := make([]*entity.AnalysisSession, 0)
	for _, s := range r.store.sessions {
		if s.Status != entity.SessionCompleted {
			continue
		}
		if _, scored := r.store.scores[s.Id]; scored {
			continue
		}
		out = append(out, copySession(s))
	}
	r.store.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Id.String() < out[j].Id.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AnalysisSessionRepository) filter(keep func(*entity.AnalysisSession) bool) []*entity.AnalysisSession {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entity.AnalysisSession, 0)
	for _, s := range r.store.sessions {
		if keep(s) {
			out = append(out, copySession(s))
		}
	}
	return out
}

func statusIn(s entity.SessionStatus, set []entity.SessionStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
