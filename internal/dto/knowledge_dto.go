package dto

import (
	"github.com/google/uuid"
)

type KnowledgeEntryRequest struct {
	Title          string  `json:"title" validate:"required,max=300"`
	Content        string  `json:"content" validate:"required"`
	Category       string  `json:"category" validate:"max=100"`
	Source         string  `json:"source" validate:"max=500"`
	FreshnessScore float64 `json:"freshness_score" validate:"gte=0,lte=1"`
}

type IngestKnowledgeRequest struct {
	Entries []KnowledgeEntryRequest `json:"entries" validate:"required,min=1,max=200,dive"`
}

type IngestKnowledgeResponse struct {
	Created        int         `json:"created"`
	Ids            []uuid.UUID `json:"ids"`
	EmbeddingModel string      `json:"embedding_model"`
}

type SearchKnowledgeRequest struct {
	Query     string   `query:"q" validate:"required"`
	Threshold *float64 `query:"threshold" validate:"omitempty,gte=0,lte=1"`
	TopK      *int     `query:"top_k" validate:"omitempty,gte=1,lte=100"`
	Category  string   `query:"category"`
}

type KnowledgeMatchResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}

type SearchKnowledgeResponse struct {
	Matches        []KnowledgeMatchResponse `json:"matches"`
	Degraded       bool                     `json:"degraded"`
	DegradedReason string                   `json:"degraded_reason,omitempty"`
}
