package dto

import (
	"encoding/json"
	"time"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

type SignalRequest struct {
	Kind string `json:"kind" validate:"required,oneof=competitive vision note"`
	Text string `json:"text" validate:"required,max=4000"`
}

// CreateAnalysisRequest registers the images and intent of a session. Running it is a separate call.
type CreateAnalysisRequest struct {
	ImageUrls     []string        `json:"image_urls" validate:"required,min=1,max=8,dive,url"`
	Goal          string          `json:"goal" validate:"max=2000"`
	Personas      []string        `json:"personas" validate:"max=5,dive,required"`
	IsComparative bool            `json:"is_comparative"`
	Signals       []SignalRequest `json:"signals" validate:"max=10,dive"`
}

type CreateAnalysisResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type RunAnalysisResponse struct {
	Id      uuid.UUID `json:"id"`
	Status  string    `json:"status"`
	Attempt int       `json:"attempt"`
}

type CancelAnalysisResponse struct {
	Id        uuid.UUID `json:"id"`
	Cancelled bool      `json:"cancelled"`
	Status    string    `json:"status"`
}

type StageResultResponse struct {
	Stage      string          `json:"stage"`
	Attempt    int             `json:"attempt"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Error      string          `json:"error,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type SynthesisResponse struct {
	Summary              string                   `json:"summary"`
	PersonaFeedback      []entity.PersonaFeedback `json:"persona_feedback"`
	PriorityMatrix       entity.PriorityMatrix    `json:"priority_matrix"`
	Annotations          []entity.Annotation      `json:"annotations"`
	Citations            []entity.Citation        `json:"citations"`
	KnowledgeSourcesUsed int                      `json:"knowledge_sources_used"`
}

type MaturityScoreResponse struct {
	Score            int    `json:"score"`
	Level            string `json:"level"`
	CriticalCount    int    `json:"critical_count"`
	SuggestedCount   int    `json:"suggested_count"`
	EnhancementCount int    `json:"enhancement_count"`
}

type AnalysisSummaryResponse struct {
	Id          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	Goal        string     `json:"goal"`
	ImageCount  int        `json:"image_count"`
	Attempt     int        `json:"attempt"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type AnalysisDetailResponse struct {
	AnalysisSummaryResponse
	ImageUrls     []string               `json:"image_urls"`
	Personas      []string               `json:"personas"`
	IsComparative bool                   `json:"is_comparative"`
	Stages        []StageResultResponse  `json:"stages"`
	Synthesis     *SynthesisResponse     `json:"synthesis,omitempty"`
	Maturity      *MaturityScoreResponse `json:"maturity,omitempty"`
}

// RunAnalysisMessage is the queue payload that asks a worker to run a session.
type RunAnalysisMessage struct {
	SessionId   uuid.UUID `json:"session_id"`
	UserId      uuid.UUID `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}
