package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SynthesisResult struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	Summary              string         `gorm:"type:text"`
	PersonaFeedback      datatypes.JSON `gorm:"type:jsonb"`
	PriorityMatrix       datatypes.JSON `gorm:"type:jsonb"`
	Annotations          datatypes.JSON `gorm:"type:jsonb"`
	Citations            datatypes.JSON `gorm:"type:jsonb"`
	KnowledgeSourcesUsed int            `gorm:"default:0"`
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
}

func (SynthesisResult) TableName() string {
	return "synthesis_results"
}
