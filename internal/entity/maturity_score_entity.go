package entity

import (
	"time"

	"github.com/google/uuid"
)

type MaturityScore struct {
	Id               uuid.UUID
	SessionId        uuid.UUID
	Score            int
	Level            string
	CriticalCount    int
	SuggestedCount   int
	EnhancementCount int
	CreatedAt        time.Time
}
