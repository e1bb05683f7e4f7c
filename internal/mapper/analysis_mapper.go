package mapper

import (
	"encoding/json"
	"fmt"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/model"

	"gorm.io/datatypes"
)

// AnalysisMapper converts session, stage, synthesis and score rows.
type AnalysisMapper struct{}

func NewAnalysisMapper() *AnalysisMapper {
	return &AnalysisMapper{}
}

// SessionToEntity fails on a signals column that does not decode instead of
// loading the session without its signals.
func (m *AnalysisMapper) SessionToEntity(s *model.AnalysisSession) (*entity.AnalysisSession, error) {
	if s == nil {
		return nil, nil
	}

	var signals []entity.Signal
	if len(s.Signals) > 0 {
		if err := json.Unmarshal(s.Signals, &signals); err != nil {
			return nil, fmt.Errorf("decode signals of session %s: %w", s.Id, err)
		}
	}

	return &entity.AnalysisSession{
		Id:                s.Id,
		UserId:            s.UserId,
		Status:            entity.SessionStatus(s.Status),
		ImageUrls:         append([]string(nil), s.ImageUrls...),
		Goal:              s.Goal,
		Personas:          append([]string(nil), s.Personas...),
		IsComparative:     s.IsComparative,
		Signals:           signals,
		Attempt:           s.Attempt,
		CancelRequestedAt: s.CancelRequestedAt,
		LastError:         s.LastError,
		CommittedAt:       s.CommittedAt,
		CompletedAt:       s.CompletedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}, nil
}

func (m *AnalysisMapper) SessionToModel(s *entity.AnalysisSession) *model.AnalysisSession {
	if s == nil {
		return nil
	}

	return &model.AnalysisSession{
		Id:                s.Id,
		UserId:            s.UserId,
		Status:            string(s.Status),
		ImageUrls:         datatypes.JSONSlice[string](s.ImageUrls),
		Goal:              s.Goal,
		Personas:          datatypes.JSONSlice[string](s.Personas),
		IsComparative:     s.IsComparative,
		Signals:           marshalJSON(s.Signals),
		Attempt:           s.Attempt,
		CancelRequestedAt: s.CancelRequestedAt,
		LastError:         s.LastError,
		CommittedAt:       s.CommittedAt,
		CompletedAt:       s.CompletedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func (m *AnalysisMapper) StageResultToEntity(r *model.StageResult) *entity.StageResult {
	if r == nil {
		return nil
	}
	return &entity.StageResult{
		Id:         r.Id,
		SessionId:  r.SessionId,
		Attempt:    r.Attempt,
		Sequence:   r.Sequence,
		Stage:      entity.StageName(r.Stage),
		Status:     entity.StageStatus(r.Status),
		StartedAt:  r.StartedAt,
		DurationMs: r.DurationMs,
		ErrorKind:  r.ErrorKind,
		ErrorText:  r.ErrorText,
		Payload:    json.RawMessage(r.Payload),
	}
}

func (m *AnalysisMapper) StageResultToModel(r *entity.StageResult) *model.StageResult {
	if r == nil {
		return nil
	}
	return &model.StageResult{
		Id:         r.Id,
		SessionId:  r.SessionId,
		Attempt:    r.Attempt,
		Sequence:   r.Sequence,
		Stage:      string(r.Stage),
		Status:     string(r.Status),
		StartedAt:  r.StartedAt,
		DurationMs: r.DurationMs,
		ErrorKind:  r.ErrorKind,
		ErrorText:  r.ErrorText,
		Payload:    datatypes.JSON(r.Payload),
	}
}

func (m *AnalysisMapper) SynthesisToEntity(r *model.SynthesisResult) (*entity.SynthesisResult, error) {
	if r == nil {
		return nil, nil
	}

	res := &entity.SynthesisResult{
		Id:                   r.Id,
		SessionId:            r.SessionId,
		Summary:              r.Summary,
		KnowledgeSourcesUsed: r.KnowledgeSourcesUsed,
		CreatedAt:            r.CreatedAt,
	}
	columns := []struct {
		name string
		raw  datatypes.JSON
		dst  interface{}
	}{
		{"persona_feedback", r.PersonaFeedback, &res.PersonaFeedback},
		{"priority_matrix", r.PriorityMatrix, &res.PriorityMatrix},
		{"annotations", r.Annotations, &res.Annotations},
		{"citations", r.Citations, &res.Citations},
	}
	for _, c := range columns {
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return nil, fmt.Errorf("decode %s of session %s: %w", c.name, r.SessionId, err)
		}
	}
	return res, nil
}

func (m *AnalysisMapper) SynthesisToModel(r *entity.SynthesisResult) *model.SynthesisResult {
	if r == nil {
		return nil
	}
	return &model.SynthesisResult{
		Id:                   r.Id,
		SessionId:            r.SessionId,
		Summary:              r.Summary,
		PersonaFeedback:      marshalJSON(r.PersonaFeedback),
		PriorityMatrix:       marshalJSON(r.PriorityMatrix),
		Annotations:          marshalJSON(r.Annotations),
		Citations:            marshalJSON(r.Citations),
		KnowledgeSourcesUsed: r.KnowledgeSourcesUsed,
		CreatedAt:            r.CreatedAt,
	}
}

func (m *AnalysisMapper) MaturityToEntity(s *model.MaturityScore) *entity.MaturityScore {
	if s == nil {
		return nil
	}
	return &entity.MaturityScore{
		Id:               s.Id,
		SessionId:        s.SessionId,
		Score:            s.Score,
		Level:            s.Level,
		CriticalCount:    s.CriticalCount,
		SuggestedCount:   s.SuggestedCount,
		EnhancementCount: s.EnhancementCount,
		CreatedAt:        s.CreatedAt,
	}
}

func (m *AnalysisMapper) MaturityToModel(s *entity.MaturityScore) *model.MaturityScore {
	if s == nil {
		return nil
	}
	return &model.MaturityScore{
		Id:               s.Id,
		SessionId:        s.SessionId,
		Score:            s.Score,
		Level:            s.Level,
		CriticalCount:    s.CriticalCount,
		SuggestedCount:   s.SuggestedCount,
		EnhancementCount: s.EnhancementCount,
		CreatedAt:        s.CreatedAt,
	}
}

func marshalJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
