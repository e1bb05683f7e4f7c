package maturity

import (
	"math"

	"design-analysis-be/internal/entity"
	"design-analysis-be/pkg/rag/prompt"
)

const (
	LevelPolished     = "polished"
	LevelRefined      = "refined"
	LevelDeveloping   = "developing"
	LevelEmerging     = "emerging"
	LevelFoundational = "foundational"
)

// Weights are the score penalty per finding of each severity.
type Weights struct {
	Critical    float64
	Suggested   float64
	Enhancement float64
}

func DefaultWeights() Weights {
	return Weights{Critical: 12, Suggested: 4, Enhancement: 1}
}

type Scorer struct {
	weights    Weights
	strictness func(persona string) float64
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w, strictness: prompt.Strictness}
}

// Score is a pure function of the bucket counts and the contributing personas:
// 100 - penalty * mean strictness, rounded and clipped to [0,100].
func (s *Scorer) Score(result *entity.SynthesisResult) *entity.MaturityScore {
	critical := len(result.PriorityMatrix.Critical)
	suggested := len(result.PriorityMatrix.Suggested)
	enhancement := len(result.PriorityMatrix.Enhancement)

	penalty := s.weights.Critical*float64(critical) +
		s.weights.Suggested*float64(suggested) +
		s.weights.Enhancement*float64(enhancement)

	raw := 100 - penalty*s.modifier(result.PersonaFeedback)
	score := int(math.Round(math.Max(0, math.Min(100, raw))))

	return &entity.MaturityScore{
		SessionId:        result.SessionId,
		Score:            score,
		Level:            Level(score),
		CriticalCount:    critical,
		SuggestedCount:   suggested,
		EnhancementCount: enhancement,
	}
}

func (s *Scorer) modifier(feedback []entity.PersonaFeedback) float64 {
	if len(feedback) == 0 {
		return 1.0
	}
	var sum float64
	for _, f := range feedback {
		sum += s.strictness(f.Persona)
	}
	return sum / float64(len(feedback))
}

func Level(score int) string {
	switch {
	case score >= 85:
		return LevelPolished
	case score >= 70:
		return LevelRefined
	case score >= 50:
		return LevelDeveloping
	case score >= 30:
		return LevelEmerging
	default:
		return LevelFoundational
	}
}
