package model

import (
	"time"

	"github.com/google/uuid"
)

// MaturityScore has at most one row per session (unique session_id).
type MaturityScore struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Score            int       `gorm:"not null"`
	Level            string    `gorm:"type:varchar(32);not null"`
	CriticalCount    int       `gorm:"default:0"`
	SuggestedCount   int       `gorm:"default:0"`
	EnhancementCount int       `gorm:"default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (MaturityScore) TableName() string {
	return "maturity_scores"
}
