package entity

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionDraft      SessionStatus = "draft"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
	SessionCancelled  SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed without an explicit retry.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// Signal is an optional non-corpus input (competitive notes, vision tags) fed to the context assembler.
type Signal struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// AnalysisSession is one design under review. CommittedAt is set once the
// current attempt starts the no-return stage and cleared when a new attempt starts.
type AnalysisSession struct {
	Id                uuid.UUID
	UserId            uuid.UUID
	Status            SessionStatus
	ImageUrls         []string
	Goal              string
	Personas          []string
	IsComparative     bool
	Signals           []Signal
	Attempt           int
	CancelRequestedAt *time.Time
	LastError         string
	CommittedAt       *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (s *AnalysisSession) CancelRequested() bool {
	return s.CancelRequestedAt != nil
}
