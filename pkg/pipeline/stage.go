package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"design-analysis-be/internal/entity"
)

// StageRequest is the input of one stage invocation. Prior holds the payloads
// of the stages already completed or reused in this run.
type StageRequest struct {
	Session *entity.AnalysisSession
	Attempt int
	Prior   map[entity.StageName]json.RawMessage
}

// Stage is one independently invocable pipeline step.
type Stage interface {
	Name() entity.StageName
	Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error)
}

func decodePrior(req StageRequest, stage entity.StageName, out interface{}) error {
	raw, ok := req.Prior[stage]
	if !ok || len(raw) == 0 {
		return fmt.Errorf("missing %s payload", stage)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", stage, err)
	}
	return nil
}
