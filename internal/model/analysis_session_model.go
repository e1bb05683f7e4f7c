package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AnalysisSession struct {
	Id                uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId            uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Status            string                      `gorm:"type:varchar(20);not null;default:'draft';index"`
	ImageUrls         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Goal              string                      `gorm:"type:text"`
	Personas          datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	IsComparative     bool                        `gorm:"default:false"`
	Signals           datatypes.JSON              `gorm:"type:jsonb"`
	Attempt           int                         `gorm:"default:0"`
	CancelRequestedAt *time.Time
	LastError         string `gorm:"type:text"`
	CommittedAt       *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"index"`
}

func (AnalysisSession) TableName() string {
	return "analysis_sessions"
}
