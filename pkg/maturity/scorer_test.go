package maturity

import (
	"testing"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func resultWith(critical, suggested, enhancement int, personas ...string) *entity.SynthesisResult {
	r := &entity.SynthesisResult{SessionId: uuid.New()}
	r.PriorityMatrix.Critical = make([]entity.Annotation, critical)
	r.PriorityMatrix.Suggested = make([]entity.Annotation, suggested)
	r.PriorityMatrix.Enhancement = make([]entity.Annotation, enhancement)
	for _, p := range personas {
		r.PersonaFeedback = append(r.PersonaFeedback, entity.PersonaFeedback{Persona: p})
	}
	return r
}

func TestScore(t *testing.T) {
	s := NewScorer(DefaultWeights())

	tests := []struct {
		name      string
		result    *entity.SynthesisResult
		wantScore int
		wantLevel string
	}{
		{"no findings", resultWith(0, 0, 0, "usability"), 100, LevelPolished},
		{"neutral persona", resultWith(1, 2, 3, "usability"), 77, LevelRefined},
		{"no personas uses 1.0", resultWith(1, 2, 3), 77, LevelRefined},
		// penalty 23, mean strictness (1.2 + 0.8) / 2 = 1.0
		{"mean strictness", resultWith(1, 2, 3, "accessibility", "brand"), 77, LevelRefined},
		// penalty 23 * 1.2 = 27.6
		{"strict persona", resultWith(1, 2, 3, "accessibility"), 72, LevelRefined},
		{"developing", resultWith(3, 3, 2, "usability"), 50, LevelDeveloping},
		{"clipped at zero", resultWith(20, 0, 0, "accessibility"), 0, LevelFoundational},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.result)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.result.SessionId, got.SessionId)
			assert.Equal(t, len(tt.result.PriorityMatrix.Critical), got.CriticalCount)
		})
	}
}

func TestLevelBoundaries(t *testing.T) {
	assert.Equal(t, LevelPolished, Level(85))
	assert.Equal(t, LevelRefined, Level(84))
	assert.Equal(t, LevelRefined, Level(70))
	assert.Equal(t, LevelDeveloping, Level(69))
	assert.Equal(t, LevelEmerging, Level(30))
	assert.Equal(t, LevelFoundational, Level(29))
}
