package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/llm"
	"design-analysis-be/pkg/maturity"
	ragcontext "design-analysis-be/pkg/rag/context"
	"design-analysis-be/pkg/rag/prompt"
	"design-analysis-be/pkg/rag/retriever"
	"design-analysis-be/pkg/synthesis"

	"golang.org/x/sync/errgroup"
)

type PersonaPrompt struct {
	Persona string `json:"persona"`
	Prompt  string `json:"prompt"`
}

type PromptPayload struct {
	Prompts              []PersonaPrompt   `json:"prompts"`
	Citations            []entity.Citation `json:"citations"`
	KnowledgeSourcesUsed int               `json:"knowledge_sources_used"`
	TotalRelevant        int               `json:"total_relevant"`
	CategoryHistogram    map[string]int    `json:"category_histogram"`
	Degraded             bool              `json:"degraded"`
	DegradedReason       string            `json:"degraded_reason,omitempty"`
	Ungrounded           bool              `json:"ungrounded"`
}

type CritiquePayload struct {
	Critiques []synthesis.PersonaCritique `json:"critiques"`
}

type SynthesisPayload struct {
	SynthesisId     string `json:"synthesis_id"`
	AnnotationCount int    `json:"annotation_count"`
	Critical        int    `json:"critical"`
	Suggested       int    `json:"suggested"`
	Enhancement     int    `json:"enhancement"`
}

type ScoringPayload struct {
	Score   int    `json:"score"`
	Level   string `json:"level"`
	Created bool   `json:"created"`
}

// Critic is the model access the critique stage needs; *llm.Chain satisfies it.
type Critic interface {
	Chat(ctx context.Context, need llm.Capability, history []llm.Message, opts ...llm.Option) (string, string, error)
}

// PromptStage retrieves research context and builds one prompt per persona.
// Retrieval problems degrade the run, they never fail it.
type PromptStage struct {
	cfg       Config
	retriever *retriever.Retriever
	assembler *ragcontext.Assembler
}

func NewPromptStage(cfg Config, r *retriever.Retriever, a *ragcontext.Assembler) *PromptStage {
	return &PromptStage{cfg: cfg, retriever: r, assembler: a}
}

func (s *PromptStage) Name() entity.StageName { return entity.StagePromptBuilding }

func (s *PromptStage) Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error) {
	session := req.Session
	personas := resolvePersonas(session.Personas, s.cfg.DefaultPersonas)

	payload := PromptPayload{CategoryHistogram: map[string]int{}, Citations: []entity.Citation{}}
	var matches []retriever.Match
	if s.cfg.RAGEnabled && s.retriever != nil {
		res := s.retriever.Retrieve(ctx, retrievalText(session), retriever.Query{
			Threshold: s.cfg.SimilarityThreshold,
			TopK:      s.cfg.TopK,
			Category:  s.cfg.CategoryFilter,
		})
		matches = res.Matches
		payload.Degraded = res.Degraded
		payload.DegradedReason = res.DegradedReason
	}

	rag := s.assembler.Build(matches, s.cfg.MaxContextChars, session.Signals...)
	payload.Citations = rag.Citations
	payload.KnowledgeSourcesUsed = rag.KnowledgeSourcesUsed
	payload.TotalRelevant = rag.TotalRelevant
	payload.CategoryHistogram = rag.CategoryHistogram
	payload.Ungrounded = len(rag.Entries) == 0

	for _, id := range personas {
		p, ok := prompt.LookupPersona(id)
		if !ok {
			return nil, fmt.Errorf("unknown persona %q", id)
		}
		payload.Prompts = append(payload.Prompts, PersonaPrompt{
			Persona: id,
			Prompt: prompt.Build(prompt.Input{
				BasePrompt:    s.cfg.BasePrompt,
				RAG:           rag,
				Persona:       p,
				Goal:          session.Goal,
				ImageCount:    len(session.ImageUrls),
				IsComparative: session.IsComparative,
			}),
		})
	}
	return json.Marshal(payload)
}

// CritiqueStage runs one model critique per persona. Personas run concurrently;
// results keep persona order.
type CritiqueStage struct {
	cfg    Config
	critic Critic
}

func NewCritiqueStage(cfg Config, critic Critic) *CritiqueStage {
	return &CritiqueStage{cfg: cfg, critic: critic}
}

func (s *CritiqueStage) Name() entity.StageName { return entity.StageCritique }

func (s *CritiqueStage) Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error) {
	var prompts PromptPayload
	if err := decodePrior(req, entity.StagePromptBuilding, &prompts); err != nil {
		return nil, err
	}

	need := llm.CapabilityText
	if len(req.Session.ImageUrls) > 0 {
		need = llm.CapabilityVision
	}

	critiques := make([]synthesis.PersonaCritique, len(prompts.Prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.PersonaConcurrency)
	for i, pp := range prompts.Prompts {
		g.Go(func() error {
			history := []llm.Message{{Role: "user", Content: pp.Prompt, Images: req.Session.ImageUrls}}
			raw, backend, err := s.critic.Chat(gctx, need, history,
				llm.WithTemperature(s.cfg.Temperature),
				llm.WithMaxTokens(s.cfg.MaxTokens),
			)
			if err != nil {
				return fmt.Errorf("persona %s: %w", pp.Persona, err)
			}
			c := synthesis.ParseCritique(pp.Persona, raw)
			c.Backend = backend
			critiques[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return json.Marshal(CritiquePayload{Critiques: critiques})
}

// SynthesisStage merges critiques and stores the SynthesisResult.
type SynthesisStage struct {
	engine *synthesis.Engine
	repos  unitofwork.RepositoryFactory
}

func NewSynthesisStage(engine *synthesis.Engine, repos unitofwork.RepositoryFactory) *SynthesisStage {
	return &SynthesisStage{engine: engine, repos: repos}
}

func (s *SynthesisStage) Name() entity.StageName { return entity.StageSynthesis }

func (s *SynthesisStage) Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error) {
	var prompts PromptPayload
	if err := decodePrior(req, entity.StagePromptBuilding, &prompts); err != nil {
		return nil, err
	}
	var critiques CritiquePayload
	if err := decodePrior(req, entity.StageCritique, &critiques); err != nil {
		return nil, err
	}

	result := s.engine.Synthesize(critiques.Critiques)
	result.SessionId = req.Session.Id
	result.Citations = prompts.Citations
	result.KnowledgeSourcesUsed = prompts.KnowledgeSourcesUsed

	uow := s.repos.NewUnitOfWork(ctx)
	if err := uow.SynthesisResultRepository().Save(ctx, result); err != nil {
		return nil, fmt.Errorf("save synthesis: %w", err)
	}

	return json.Marshal(SynthesisPayload{
		SynthesisId:     result.Id.String(),
		AnnotationCount: len(result.Annotations),
		Critical:        len(result.PriorityMatrix.Critical),
		Suggested:       len(result.PriorityMatrix.Suggested),
		Enhancement:     len(result.PriorityMatrix.Enhancement),
	})
}

// ScoringStage derives the MaturityScore from the stored SynthesisResult.
// Insertion is idempotent, so a backfill racing this stage is harmless.
type ScoringStage struct {
	scorer *maturity.Scorer
	repos  unitofwork.RepositoryFactory
}

func NewScoringStage(scorer *maturity.Scorer, repos unitofwork.RepositoryFactory) *ScoringStage {
	return &ScoringStage{scorer: scorer, repos: repos}
}

func (s *ScoringStage) Name() entity.StageName { return entity.StageScoring }

func (s *ScoringStage) Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error) {
	uow := s.repos.NewUnitOfWork(ctx)

	result, err := uow.SynthesisResultRepository().FindBySession(ctx, req.Session.Id)
	if err != nil {
		return nil, fmt.Errorf("load synthesis: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("no synthesis result for session %s", req.Session.Id)
	}

	score := s.scorer.Score(result)
	created, err := uow.MaturityScoreRepository().CreateIfAbsent(ctx, score)
	if err != nil {
		return nil, fmt.Errorf("save maturity score: %w", err)
	}
	if !created {
		existing, err := uow.MaturityScoreRepository().FindBySession(ctx, req.Session.Id)
		if err != nil {
			return nil, fmt.Errorf("load maturity score: %w", err)
		}
		if existing != nil {
			score = existing
		}
	}

	return json.Marshal(ScoringPayload{Score: score.Score, Level: score.Level, Created: created})
}

// StageDeps wires the default stage set.
type StageDeps struct {
	Retriever *retriever.Retriever
	Assembler *ragcontext.Assembler
	Critic    Critic
	Engine    *synthesis.Engine
	Scorer    *maturity.Scorer
	Repos     unitofwork.RepositoryFactory
}

func DefaultStages(cfg Config, d StageDeps) []Stage {
	return []Stage{
		NewPromptStage(cfg, d.Retriever, d.Assembler),
		NewCritiqueStage(cfg, d.Critic),
		NewSynthesisStage(d.Engine, d.Repos),
		NewScoringStage(d.Scorer, d.Repos),
	}
}

func resolvePersonas(selected, defaults []string) []string {
	out := make([]string, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return append([]string(nil), defaults...)
	}
	return out
}

func retrievalText(s *entity.AnalysisSession) string {
	parts := []string{strings.TrimSpace(s.Goal)}
	for _, sig := range s.Signals {
		parts = append(parts, strings.TrimSpace(sig.Text))
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "design critique"
	}
	return text
}
