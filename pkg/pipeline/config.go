package pipeline

import (
	"fmt"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/pkg/rag/prompt"

	"github.com/go-playground/validator/v10"
)

// Config enumerates every behavioral knob of the pipeline. It is validated once
// when the orchestrator is built.
type Config struct {
	RAGEnabled          bool    `json:"rag_enabled"`
	SimilarityThreshold float64 `json:"similarity_threshold" validate:"gte=0,lte=1"`
	TopK                int     `json:"top_k" validate:"gte=1,lte=100"`
	CategoryFilter      string  `json:"category_filter"`
	MaxContextChars     int     `json:"max_context_chars" validate:"gte=0"`
	MaxEntryChars       int     `json:"max_entry_chars" validate:"gte=1"`

	BasePrompt         string   `json:"base_prompt"`
	DefaultPersonas    []string `json:"default_personas" validate:"min=1,dive,required"`
	PersonaConcurrency int      `json:"persona_concurrency" validate:"gte=1"`
	Temperature        float64  `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens          int      `json:"max_tokens" validate:"gte=1"`

	PromptTimeout    time.Duration `json:"prompt_timeout" validate:"gt=0"`
	CritiqueTimeout  time.Duration `json:"critique_timeout" validate:"gt=0"`
	SynthesisTimeout time.Duration `json:"synthesis_timeout" validate:"gt=0"`
	ScoringTimeout   time.Duration `json:"scoring_timeout" validate:"gt=0"`

	// NoReturnStage is the first stage after whose start cancellation is rejected.
	NoReturnStage entity.StageName `json:"no_return_stage" validate:"oneof=promptBuilding critique synthesis scoring"`
	StaleAfter    time.Duration    `json:"stale_after" validate:"gt=0"`
	LockTTL       time.Duration    `json:"lock_ttl" validate:"gt=0"`

	BackfillBatchSize int           `json:"backfill_batch_size" validate:"gte=1"`
	BackfillInterval  time.Duration `json:"backfill_interval" validate:"gte=0"`
	WorkerConcurrency int           `json:"worker_concurrency" validate:"gte=1"`
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	return Config{
		RAGEnabled:          true,
		SimilarityThreshold: 0.4,
		TopK:                10,
		MaxContextChars:     6000,
		MaxEntryChars:       1200,

		DefaultPersonas:    prompt.DefaultPersonaIDs(),
		PersonaConcurrency: 3,
		Temperature:        0.4,
		MaxTokens:          2048,

		PromptTimeout:    30 * time.Second,
		CritiqueTimeout:  3 * time.Minute,
		SynthesisTimeout: 30 * time.Second,
		ScoringTimeout:   15 * time.Second,

		NoReturnStage: entity.StageScoring,
		StaleAfter:    15 * time.Minute,
		LockTTL:       10 * time.Minute,

		BackfillBatchSize: 100,
		BackfillInterval:  200 * time.Millisecond,
		WorkerConcurrency: 4,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, id := range c.DefaultPersonas {
		if _, ok := prompt.LookupPersona(id); !ok {
			return fmt.Errorf("%w: unknown persona %q", ErrInvalidConfig, id)
		}
	}
	var total time.Duration
	for _, s := range entity.StageOrder {
		total += c.Timeout(s)
	}
	if c.LockTTL < total {
		return fmt.Errorf("%w: lock_ttl %s shorter than the sum of stage timeouts %s", ErrInvalidConfig, c.LockTTL, total)
	}
	if longest := c.LongestStageTimeout(); c.StaleAfter <= longest {
		return fmt.Errorf("%w: stale_after %s must exceed the longest stage timeout %s", ErrInvalidConfig, c.StaleAfter, longest)
	}
	return nil
}

// LongestStageTimeout bounds the heartbeat gap of a live run.
func (c Config) LongestStageTimeout() time.Duration {
	var longest time.Duration
	for _, s := range entity.StageOrder {
		if t := c.Timeout(s); t > longest {
			longest = t
		}
	}
	return longest
}

func (c Config) Timeout(stage entity.StageName) time.Duration {
	switch stage {
	case entity.StagePromptBuilding:
		return c.PromptTimeout
	case entity.StageCritique:
		return c.CritiqueTimeout
	case entity.StageSynthesis:
		return c.SynthesisTimeout
	case entity.StageScoring:
		return c.ScoringTimeout
	default:
		return 0
	}
}
