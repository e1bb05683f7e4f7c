package contract

import (
	"context"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

type MaturityScoreRepository interface {
	// CreateIfAbsent inserts the score unless the session already has one.
	CreateIfAbsent(ctx context.Context, score *entity.MaturityScore) (bool, error)
	FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.MaturityScore, error)
}
