package pipeline

import (
	"errors"
	"fmt"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/pkg/llm"
)

var (
	ErrInvalidConfig        = errors.New("invalid pipeline config")
	ErrSessionNotFound      = errors.New("analysis session not found")
	ErrSessionBusy          = errors.New("analysis session is already running")
	ErrSessionNotRunnable   = errors.New("analysis session cannot be run in its current status")
	ErrCancellationRejected = errors.New("unable to cancel analysis session")
	ErrAccessDenied         = errors.New("analysis session belongs to another user")
	ErrRunCancelled         = errors.New("analysis run cancelled")
	ErrRunSuperseded        = errors.New("analysis run superseded: session left processing")
	ErrStageTimeout         = errors.New("stage timed out")
)

// StageError is fatal to the current run. It carries what a caller needs to
// decide on a manual retry.
type StageError struct {
	Stage    entity.StageName
	Status   entity.StageStatus // error or timeout
	Kind     llm.ErrorKind
	Duration time.Duration
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s after %s: %v", e.Stage, e.Status, e.Duration.Round(time.Millisecond), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool {
	return target == ErrStageTimeout && e.Status == entity.StageTimeout
}

func newStageError(stage entity.StageName, status entity.StageStatus, d time.Duration, err error) *StageError {
	kind := llm.Classify(err)
	var exhausted *llm.ExhaustedError
	if errors.As(err, &exhausted) {
		kind = exhausted.Kind()
	}
	if status == entity.StageTimeout {
		kind = llm.KindTimeout
	}
	return &StageError{Stage: stage, Status: status, Kind: kind, Duration: d, Err: err}
}
