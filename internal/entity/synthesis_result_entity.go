package entity

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeveritySuggested   Severity = "suggested"
	SeverityEnhancement Severity = "enhancement"
)

// Rank orders severities, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeveritySuggested:
		return 1
	default:
		return 2
	}
}

type Annotation struct {
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Feedback   string   `json:"feedback"`
	ImageIndex *int     `json:"image_index,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Personas   []string `json:"personas,omitempty"`
}

type PersonaFeedback struct {
	Persona     string       `json:"persona"`
	Summary     string       `json:"summary"`
	Annotations []Annotation `json:"annotations"`
}

type PriorityMatrix struct {
	Critical    []Annotation `json:"critical"`
	Suggested   []Annotation `json:"suggested"`
	Enhancement []Annotation `json:"enhancement"`
}

type Citation struct {
	KnowledgeId uuid.UUID `json:"knowledge_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	Similarity  float64   `json:"similarity"`
}

type SynthesisResult struct {
	Id                   uuid.UUID
	SessionId            uuid.UUID
	Summary              string
	PersonaFeedback      []PersonaFeedback
	PriorityMatrix       PriorityMatrix
	Annotations          []Annotation
	Citations            []Citation
	KnowledgeSourcesUsed int
	CreatedAt            time.Time
}
