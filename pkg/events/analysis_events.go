package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	AnalysisCompleted = "analysis.completed"
	AnalysisFailed    = "analysis.failed"
	AnalysisCancelled = "analysis.cancelled"
	AnalysisReset     = "analysis.reset"
)

// NewAnalysisEvent builds a session lifecycle event. extra is merged into the payload.
func NewAnalysisEvent(eventType string, sessionId, userId uuid.UUID, attempt int, extra map[string]interface{}) BaseEvent {
	data := map[string]interface{}{
		"session_id": sessionId.String(),
		"user_id":    userId.String(),
		"attempt":    attempt,
	}
	for k, v := range extra {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
