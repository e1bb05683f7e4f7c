package contract

import (
	"context"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

type SynthesisResultRepository interface {
	// Save inserts or replaces the session's synthesis.
	Save(ctx context.Context, result *entity.SynthesisResult) error
	FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.SynthesisResult, error)
}
