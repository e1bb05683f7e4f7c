package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// KnowledgeEntry stores one research entry. cmd/migrate pins the vector
// width to EMBEDDING_DIMENSIONS.
type KnowledgeEntry struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title          string          `gorm:"type:text;not null"`
	Content        string          `gorm:"type:text;not null"`
	Category       string          `gorm:"type:varchar(64);not null;index"`
	Embedding      pgvector.Vector `gorm:"type:vector"`
	EmbeddingModel string          `gorm:"type:varchar(128);not null;index"`
	Source         string          `gorm:"type:text"`
	FreshnessScore float64         `gorm:"default:0"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}
