package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type StageName string

const (
	StagePromptBuilding StageName = "promptBuilding"
	StageCritique       StageName = "critique"
	StageSynthesis      StageName = "synthesis"
	StageScoring        StageName = "scoring"
)

// StageOrder is the fixed execution order of a pipeline run.
var StageOrder = []StageName{StagePromptBuilding, StageCritique, StageSynthesis, StageScoring}

// StageIndex returns the position of the stage in StageOrder, or -1.
func StageIndex(name StageName) int {
	for i, s := range StageOrder {
		if s == name {
			return i
		}
	}
	return -1
}

type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageSuccess StageStatus = "success"
	StageError   StageStatus = "error"
	StageTimeout StageStatus = "timeout"
	StageSkipped StageStatus = "skipped"
)

// IsFailure reports whether the status halts the pipeline.
func (s StageStatus) IsFailure() bool {
	return s == StageError || s == StageTimeout
}

// StageResult is one attempt of one stage. Rows are appended, never rewritten
// once finalized.
type StageResult struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	Attempt    int
	Sequence   int64
	Stage      StageName
	Status     StageStatus
	StartedAt  time.Time
	DurationMs int64
	ErrorKind  string
	ErrorText  string
	Payload    json.RawMessage
}
