package contract

import (
	"context"
	"encoding/json"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

// StageOutcome finalizes a running StageResult.
type StageOutcome struct {
	Status     entity.StageStatus
	DurationMs int64
	ErrorKind  string
	ErrorText  string
	Payload    json.RawMessage
}

type StageResultRepository interface {
	// Append inserts a new row and assigns its Sequence.
	Append(ctx context.Context, result *entity.StageResult) error
	// Finalize updates a row that is still running; finalized rows are never rewritten.
	Finalize(ctx context.Context, id uuid.UUID, outcome StageOutcome) (bool, error)
	// FindBySession returns the full log in insertion order.
	FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.StageResult, error)
	// AbandonRunning finalizes every running row of the session as error.
	AbandonRunning(ctx context.Context, sessionId uuid.UUID, reason string) (int64, error)
}
