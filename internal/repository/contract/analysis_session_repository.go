package contract

import (
	"context"
	"time"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

// SessionPatch describes a status transition plus the fields that change with it.
// Nil pointers leave the column untouched.
type SessionPatch struct {
	Status      entity.SessionStatus
	Attempt     *int
	LastError   *string
	CompletedAt *time.Time
	ClearCancel bool
	ClearCommit bool
	UpdatedAt   time.Time
}

type AnalysisSessionRepository interface {
	Create(ctx context.Context, session *entity.AnalysisSession) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.AnalysisSession, error)
	FindByUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.AnalysisSession, error)
	// Transition applies patch only when the current status is one of from.
	// It reports whether a row was changed.
	Transition(ctx context.Context, id uuid.UUID, from []entity.SessionStatus, patch SessionPatch) (bool, error)
	// RequestCancel marks a processing session for cancellation at the next stage
	// boundary. It fails once the current attempt has committed.
	RequestCancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// Commit records that attempt passed the no-return stage. It fails when the
	// session left processing, moved to another attempt or has a pending cancel.
	// Commit and RequestCancel are mutually exclusive for an attempt.
	Commit(ctx context.Context, id uuid.UUID, attempt int, at time.Time) (bool, error)
	// Touch refreshes the heartbeat of a processing session.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	FindStuck(ctx context.Context, heartbeatBefore time.Time) ([]*entity.AnalysisSession, error)
	FindCompletedWithoutScore(ctx context.Context, limit int) ([]*entity.AnalysisSession, error)
}
