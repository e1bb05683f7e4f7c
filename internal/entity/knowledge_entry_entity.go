package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is one curated piece of research used to ground analyses.
// Entries are immutable once stored; curation deletes them, nothing updates them.
type KnowledgeEntry struct {
	Id             uuid.UUID
	Title          string
	Content        string
	Category       string
	Embedding      []float32
	EmbeddingModel string // model version tag the embedding was produced with
	Source         string
	FreshnessScore float64
	CreatedAt      time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// ScoredKnowledgeEntry pairs an entry with its cosine similarity to a query.
type ScoredKnowledgeEntry struct {
	Entry      *KnowledgeEntry
	Similarity float64
}
