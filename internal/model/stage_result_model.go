package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StageResult is an append-only log row. Sequence is assigned from a
// database sequence so insertion order survives equal timestamps.
type StageResult struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId  uuid.UUID      `gorm:"type:uuid;not null;index:idx_stage_results_session_seq,priority:1"`
	Sequence   int64          `gorm:"autoIncrement;index:idx_stage_results_session_seq,priority:2"`
	Attempt    int            `gorm:"not null"`
	Stage      string         `gorm:"type:varchar(32);not null"`
	Status     string         `gorm:"type:varchar(16);not null;index"`
	StartedAt  time.Time      `gorm:"not null"`
	DurationMs int64          `gorm:"default:0"`
	ErrorKind  string         `gorm:"type:varchar(32)"`
	ErrorText  string         `gorm:"type:text"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
}

func (StageResult) TableName() string {
	return "stage_results"
}
