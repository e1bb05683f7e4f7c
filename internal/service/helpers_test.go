package service

import (
	"context"
	"sync"
	"testing"

	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/memory"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/embedding"
	"design-analysis-be/pkg/llm"
	"design-analysis-be/pkg/lock"
	"design-analysis-be/pkg/maturity"
	"design-analysis-be/pkg/pipeline"
	ragcontext "design-analysis-be/pkg/rag/context"
	"design-analysis-be/pkg/rag/retriever"
	"design-analysis-be/pkg/synthesis"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const critiqueReply = `{"summary":"Looks solid.","annotations":[{"category":"navigation","severity":"suggested","feedback":"Group the secondary links","imageIndex":0,"x":0.2,"y":0.1}]}`

type fakeCritic struct {
	err error
}

func (c *fakeCritic) Chat(ctx context.Context, need llm.Capability, history []llm.Message, opts ...llm.Option) (string, string, error) {
	if c.err != nil {
		return "", "", c.err
	}
	return critiqueReply, "fake", nil
}

type recordingQueue struct {
	mu       sync.Mutex
	messages []dto.RunAnalysisMessage
}

func (q *recordingQueue) Publish(ctx context.Context, msg dto.RunAnalysisMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *recordingQueue) Consume(ctx context.Context, workers int, handle RunHandler) error {
	<-ctx.Done()
	return nil
}

type harness struct {
	store        *memory.Store
	repos        unitofwork.RepositoryFactory
	provider     *embedding.StaticProvider
	retriever    *retriever.Retriever
	critic       *fakeCritic
	orchestrator *pipeline.Orchestrator
	cfg          pipeline.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(),
		provider: embedding.NewStaticProvider("test", 16),
		critic:   &fakeCritic{},
		cfg:      pipeline.DefaultConfig(),
	}
	h.cfg.BackfillInterval = 0
	h.repos = memory.NewRepositoryFactory(h.store)
	h.retriever = retriever.NewRetriever(h.provider, h.repos, logger.NewNopLogger())

	stages := pipeline.DefaultStages(h.cfg, pipeline.StageDeps{
		Retriever: h.retriever,
		Assembler: ragcontext.NewAssembler(h.cfg.MaxEntryChars),
		Critic:    h.critic,
		Engine:    synthesis.NewEngine(),
		Scorer:    maturity.NewScorer(maturity.DefaultWeights()),
		Repos:     h.repos,
	})
	orch, err := pipeline.NewOrchestrator(h.cfg, h.repos, stages, lock.NewMemoryLocker(), nil, logger.NewNopLogger())
	require.NoError(t, err)
	h.orchestrator = orch
	return h
}

func (h *harness) session(t *testing.T, id uuid.UUID) *entity.AnalysisSession {
	t.Helper()
	s, err := h.repos.NewUnitOfWork(context.Background()).AnalysisSessionRepository().FindById(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}
