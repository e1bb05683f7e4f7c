package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/memory"
	"design-analysis-be/pkg/embedding"
	"design-analysis-be/pkg/events"
	"design-analysis-be/pkg/llm"
	"design-analysis-be/pkg/lock"
	"design-analysis-be/pkg/maturity"
	ragcontext "design-analysis-be/pkg/rag/context"
	"design-analysis-be/pkg/rag/retriever"
	"design-analysis-be/pkg/synthesis"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcStage struct {
	name  entity.StageName
	calls int
	mu    sync.Mutex
	fn    func(ctx context.Context, req StageRequest) (json.RawMessage, error)
}

func (s *funcStage) Name() entity.StageName { return s.name }

func (s *funcStage) Invoke(ctx context.Context, req StageRequest) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn == nil {
		return json.RawMessage(`{"stage":"` + string(s.name) + `"}`), nil
	}
	return s.fn(ctx, req)
}

func (s *funcStage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	store     *memory.Store
	orch      *Orchestrator
	stages    map[entity.StageName]*funcStage
	publisher *recordingPublisher
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PromptTimeout = time.Second
	cfg.CritiqueTimeout = time.Second
	cfg.SynthesisTimeout = time.Second
	cfg.ScoringTimeout = time.Second
	cfg.LockTTL = 10 * time.Second
	return cfg
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		stages:    make(map[entity.StageName]*funcStage),
		publisher: &recordingPublisher{},
	}
	stages := make([]Stage, 0, len(entity.StageOrder))
	for _, name := range entity.StageOrder {
		s := &funcStage{name: name}
		f.stages[name] = s
		stages = append(stages, s)
	}
	orch, err := NewOrchestrator(cfg, memory.NewRepositoryFactory(f.store), stages, lock.NewMemoryLocker(), f.publisher, logger.NewNopLogger())
	require.NoError(t, err)
	f.orch = orch
	return f
}

func (f *fixture) createSession(t *testing.T, mutate func(s *entity.AnalysisSession)) *entity.AnalysisSession {
	t.Helper()
	s := &entity.AnalysisSession{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Status:    entity.SessionDraft,
		ImageUrls: []string{"https://cdn.example.com/a.png"},
		Goal:      "Improve checkout conversion",
	}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, memory.NewAnalysisSessionRepository(f.store).Create(context.Background(), s))
	return s
}

func (f *fixture) session(t *testing.T, id uuid.UUID) *entity.AnalysisSession {
	t.Helper()
	s, err := memory.NewAnalysisSessionRepository(f.store).FindById(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (f *fixture) log(t *testing.T, id uuid.UUID) []*entity.StageResult {
	t.Helper()
	rows, err := memory.NewStageResultRepository(f.store).FindBySession(context.Background(), id)
	require.NoError(t, err)
	return rows
}

// assertOrdered checks that each attempt lists stages in pipeline order and
// that nothing succeeds after a failure within the attempt.
func assertOrdered(t *testing.T, rows []*entity.StageResult) {
	t.Helper()
	last := map[int]int{}
	failed := map[int]bool{}
	for _, r := range rows {
		idx := entity.StageIndex(r.Stage)
		prev, seen := last[r.Attempt]
		if seen {
			assert.Greater(t, idx, prev, "stage %s out of order in attempt %d", r.Stage, r.Attempt)
		}
		last[r.Attempt] = idx
		if failed[r.Attempt] {
			assert.NotEqual(t, entity.StageSuccess, r.Status, "success after failure in attempt %d", r.Attempt)
		}
		if r.Status.IsFailure() {
			failed[r.Attempt] = true
		}
	}
}

func stageNames(rows []*entity.StageResult) []entity.StageName {
	out := make([]entity.StageName, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Stage)
	}
	return out
}

func TestNewOrchestrator_RejectsBadWiring(t *testing.T) {
	repos := memory.NewRepositoryFactory(memory.NewStore())

	_, err := NewOrchestrator(testConfig(), repos, []Stage{&funcStage{name: entity.StageCritique}}, lock.NewMemoryLocker(), nil, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	swapped := []Stage{
		&funcStage{name: entity.StageCritique},
		&funcStage{name: entity.StagePromptBuilding},
		&funcStage{name: entity.StageSynthesis},
		&funcStage{name: entity.StageScoring},
	}
	_, err = NewOrchestrator(testConfig(), repos, swapped, lock.NewMemoryLocker(), nil, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := testConfig()
	cfg.LockTTL = time.Second
	_, err = NewOrchestrator(cfg, repos, swapped, lock.NewMemoryLocker(), nil, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.StaleAfter = cfg.CritiqueTimeout
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestRun_CompletesInOrder(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	var seenPrior []int
	f.stages[entity.StageScoring].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		seenPrior = append(seenPrior, len(req.Prior))
		return json.RawMessage(`{}`), nil
	}

	require.NoError(t, f.orch.Run(context.Background(), s.Id))

	got := f.session(t, s.Id)
	assert.Equal(t, entity.SessionCompleted, got.Status)
	assert.Equal(t, 1, got.Attempt)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, []int{3}, seenPrior)

	rows := f.log(t, s.Id)
	assert.Equal(t, entity.StageOrder, stageNames(rows))
	for _, r := range rows {
		assert.Equal(t, entity.StageSuccess, r.Status)
	}
	assertOrdered(t, rows)
	assert.Equal(t, []string{events.AnalysisCompleted}, f.publisher.Types())
}

func TestRun_CritiqueErrorFailsSession(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)
	f.stages[entity.StageCritique].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		return nil, llm.ErrRateLimited
	}

	err := f.orch.Run(context.Background(), s.Id)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, entity.StageCritique, stageErr.Stage)
	assert.Equal(t, entity.StageError, stageErr.Status)
	assert.Equal(t, llm.KindRateLimited, stageErr.Kind)

	got := f.session(t, s.Id)
	assert.Equal(t, entity.SessionFailed, got.Status)
	assert.Contains(t, got.LastError, "critique")

	rows := f.log(t, s.Id)
	assert.Equal(t, []entity.StageName{entity.StagePromptBuilding, entity.StageCritique}, stageNames(rows))
	assert.Equal(t, entity.StageError, rows[1].Status)
	assert.Equal(t, string(llm.KindRateLimited), rows[1].ErrorKind)
	assert.Zero(t, f.stages[entity.StageSynthesis].Calls())
	assert.Zero(t, f.stages[entity.StageScoring].Calls())
	assertOrdered(t, rows)
	assert.Equal(t, []string{events.AnalysisFailed}, f.publisher.Types())
}

func TestRun_StageTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.SynthesisTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg)
	s := f.createSession(t, nil)

	release := make(chan struct{})
	defer close(release)
	f.stages[entity.StageSynthesis].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		<-release
		return json.RawMessage(`{"late":true}`), nil
	}

	err := f.orch.Run(context.Background(), s.Id)
	assert.ErrorIs(t, err, ErrStageTimeout)

	rows := f.log(t, s.Id)
	require.Len(t, rows, 3)
	assert.Equal(t, entity.StageTimeout, rows[2].Status)
	assert.Empty(t, rows[2].Payload)
	assert.Equal(t, string(llm.KindTimeout), rows[2].ErrorKind)
	assert.Equal(t, entity.SessionFailed, f.session(t, s.Id).Status)
}

func TestRun_RetryReusesSucceededStages(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	fail := true
	f.stages[entity.StageSynthesis].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		if fail {
			return nil, errors.New("store unavailable")
		}
		assert.JSONEq(t, `{"stage":"critique"}`, string(req.Prior[entity.StageCritique]))
		return json.RawMessage(`{"stage":"synthesis"}`), nil
	}

	require.Error(t, f.orch.Run(context.Background(), s.Id))
	fail = false
	require.NoError(t, f.orch.Run(context.Background(), s.Id))

	got := f.session(t, s.Id)
	assert.Equal(t, entity.SessionCompleted, got.Status)
	assert.Equal(t, 2, got.Attempt)
	assert.Empty(t, got.LastError)

	assert.Equal(t, 1, f.stages[entity.StagePromptBuilding].Calls())
	assert.Equal(t, 1, f.stages[entity.StageCritique].Calls())
	assert.Equal(t, 2, f.stages[entity.StageSynthesis].Calls())

	rows := f.log(t, s.Id)
	var second []*entity.StageResult
	for _, r := range rows {
		if r.Attempt == 2 {
			second = append(second, r)
		}
	}
	require.Len(t, second, 4)
	assert.Equal(t, entity.StageSkipped, second[0].Status)
	assert.Equal(t, entity.StageSkipped, second[1].Status)
	assert.Equal(t, entity.StageSuccess, second[2].Status)
	assert.Equal(t, entity.StageSuccess, second[3].Status)
	assertOrdered(t, rows)
}

func TestRun_RejectsNonRunnableSessions(t *testing.T) {
	f := newFixture(t, testConfig())

	err := f.orch.Run(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	for _, status := range []entity.SessionStatus{entity.SessionProcessing, entity.SessionCompleted, entity.SessionCancelled} {
		s := f.createSession(t, func(s *entity.AnalysisSession) { s.Status = status })
		assert.ErrorIs(t, f.orch.Run(context.Background(), s.Id), ErrSessionNotRunnable, status)
	}
}

func TestRun_BusyWhileLocked(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	release, err := f.orch.locker.Acquire(context.Background(), "analysis:"+s.Id.String(), time.Minute)
	require.NoError(t, err)
	defer release()

	assert.ErrorIs(t, f.orch.Run(context.Background(), s.Id), ErrSessionBusy)
	assert.Equal(t, entity.SessionDraft, f.session(t, s.Id).Status)
}

func TestCancel_Draft(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	_, err := f.orch.Cancel(context.Background(), s.Id, uuid.New())
	assert.ErrorIs(t, err, ErrAccessDenied)

	ok, err := f.orch.Cancel(context.Background(), s.Id, s.UserId)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entity.SessionCancelled, f.session(t, s.Id).Status)

	_, err = f.orch.Cancel(context.Background(), s.Id, s.UserId)
	assert.ErrorIs(t, err, ErrCancellationRejected)
	assert.ErrorIs(t, f.orch.Run(context.Background(), s.Id), ErrSessionNotRunnable)
}

func TestCancel_ProcessingStopsAtNextStage(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	f.stages[entity.StageCritique].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		ok, err := f.orch.Cancel(ctx, s.Id, s.UserId)
		assert.NoError(t, err)
		assert.True(t, ok)
		return json.RawMessage(`{}`), nil
	}

	err := f.orch.Run(context.Background(), s.Id)
	assert.ErrorIs(t, err, ErrRunCancelled)

	got := f.session(t, s.Id)
	assert.Equal(t, entity.SessionCancelled, got.Status)
	assert.Equal(t, []entity.StageName{entity.StagePromptBuilding, entity.StageCritique}, stageNames(f.log(t, s.Id)))
	assert.Zero(t, f.stages[entity.StageSynthesis].Calls())
	assert.Equal(t, []string{events.AnalysisCancelled}, f.publisher.Types())
}

func TestCancel_RejectedOnceNoReturnStageStarted(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	var cancelErr error
	f.stages[entity.StageScoring].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		_, cancelErr = f.orch.Cancel(ctx, s.Id, s.UserId)
		return json.RawMessage(`{}`), nil
	}

	require.NoError(t, f.orch.Run(context.Background(), s.Id))
	assert.ErrorIs(t, cancelErr, ErrCancellationRejected)
	assert.Equal(t, entity.SessionCompleted, f.session(t, s.Id).Status)

	_, err := f.orch.Cancel(context.Background(), s.Id, s.UserId)
	assert.ErrorIs(t, err, ErrCancellationRejected)
}

func TestResetStuck(t *testing.T) {
	f := newFixture(t, testConfig())
	now := time.Now()
	f.orch.now = func() time.Time { return now }

	stale := f.createSession(t, func(s *entity.AnalysisSession) {
		s.Status = entity.SessionProcessing
		s.Attempt = 1
		s.UpdatedAt = now.Add(-time.Hour)
	})
	fresh := f.createSession(t, func(s *entity.AnalysisSession) {
		s.Status = entity.SessionProcessing
		s.Attempt = 1
		s.UpdatedAt = now.Add(-time.Minute)
	})
	require.NoError(t, memory.NewStageResultRepository(f.store).Append(context.Background(), &entity.StageResult{
		SessionId: stale.Id,
		Attempt:   1,
		Stage:     entity.StageCritique,
		Status:    entity.StageRunning,
		StartedAt: now.Add(-time.Hour),
	}))

	count, err := f.orch.ResetStuck(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got := f.session(t, stale.Id)
	assert.Equal(t, entity.SessionFailed, got.Status)
	assert.Contains(t, got.LastError, "reset")
	assert.Equal(t, entity.SessionProcessing, f.session(t, fresh.Id).Status)

	rows := f.log(t, stale.Id)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.StageError, rows[0].Status)
	assert.Equal(t, []string{events.AnalysisReset}, f.publisher.Types())

	count, err = f.orch.ResetStuck(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResetStuck_RejectsWindowShorterThanStageTimeout(t *testing.T) {
	f := newFixture(t, testConfig())
	f.createSession(t, func(s *entity.AnalysisSession) {
		s.Status = entity.SessionProcessing
		s.Attempt = 1
		s.UpdatedAt = time.Now().Add(-time.Hour)
	})

	_, err := f.orch.ResetStuck(context.Background(), time.Nanosecond)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = f.orch.ResetStuck(context.Background(), f.orch.cfg.CritiqueTimeout)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Empty(t, f.publisher.Types())
}

func TestRun_ResetDuringStageStopsTheRun(t *testing.T) {
	f := newFixture(t, testConfig())
	start := time.Now()
	var clock atomic.Int64
	clock.Store(start.UnixNano())
	f.orch.now = func() time.Time { return time.Unix(0, clock.Load()) }
	s := f.createSession(t, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.stages[entity.StageCritique].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		close(entered)
		<-release
		return json.RawMessage(`{"stage":"critique"}`), nil
	}

	done := make(chan error, 1)
	go func() { done <- f.orch.Run(context.Background(), s.Id) }()
	<-entered

	clock.Store(start.Add(time.Hour).UnixNano())
	count, err := f.orch.ResetStuck(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	close(release)

	assert.ErrorIs(t, <-done, ErrRunSuperseded)

	got := f.session(t, s.Id)
	assert.Equal(t, entity.SessionFailed, got.Status)
	assert.Contains(t, got.LastError, "reset")

	rows := f.log(t, s.Id)
	assert.Equal(t, []entity.StageName{entity.StagePromptBuilding, entity.StageCritique}, stageNames(rows))
	assert.Equal(t, entity.StageError, rows[1].Status)
	assert.Empty(t, rows[1].Payload)
	assertOrdered(t, rows)
	assert.Zero(t, f.stages[entity.StageSynthesis].Calls())
	assert.Zero(t, f.stages[entity.StageScoring].Calls())
	assert.Equal(t, []string{events.AnalysisReset}, f.publisher.Types())
}

func TestRun_StopsWhenSessionLeavesProcessing(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)
	sessions := memory.NewAnalysisSessionRepository(f.store)

	f.stages[entity.StagePromptBuilding].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		msg := "failed elsewhere"
		ok, err := sessions.Transition(ctx, s.Id, []entity.SessionStatus{entity.SessionProcessing},
			contract.SessionPatch{Status: entity.SessionFailed, LastError: &msg, UpdatedAt: time.Now()})
		assert.NoError(t, err)
		assert.True(t, ok)
		return json.RawMessage(`{}`), nil
	}

	assert.ErrorIs(t, f.orch.Run(context.Background(), s.Id), ErrRunSuperseded)
	assert.Equal(t, entity.SessionFailed, f.session(t, s.Id).Status)
	assert.Equal(t, []entity.StageName{entity.StagePromptBuilding}, stageNames(f.log(t, s.Id)))
	assert.Zero(t, f.stages[entity.StageCritique].Calls())
	assert.Empty(t, f.publisher.Types())
}

func TestCancel_CommittedAttemptRejectsCancel(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.createSession(t, nil)

	sessions := memory.NewAnalysisSessionRepository(f.store)
	committedAt := func(ctx context.Context) *time.Time {
		current, err := sessions.FindById(ctx, s.Id)
		if !assert.NoError(t, err) || !assert.NotNil(t, current) {
			return nil
		}
		return current.CommittedAt
	}

	var cancelErr error
	var committed *time.Time
	f.stages[entity.StageSynthesis].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		// cancellation is still open while synthesis runs
		assert.Nil(t, committedAt(ctx))
		return json.RawMessage(`{}`), nil
	}
	f.stages[entity.StageScoring].fn = func(ctx context.Context, req StageRequest) (json.RawMessage, error) {
		committed = committedAt(ctx)
		_, cancelErr = f.orch.Cancel(ctx, s.Id, s.UserId)
		return json.RawMessage(`{}`), nil
	}

	require.NoError(t, f.orch.Run(context.Background(), s.Id))
	assert.NotNil(t, committed)
	assert.ErrorIs(t, cancelErr, ErrCancellationRejected)
	assert.False(t, f.session(t, s.Id).CancelRequested())
}

type stubCritic struct {
	mu    sync.Mutex
	needs []llm.Capability
	reply string
}

func (c *stubCritic) Chat(ctx context.Context, need llm.Capability, history []llm.Message, opts ...llm.Option) (string, string, error) {
	c.mu.Lock()
	c.needs = append(c.needs, need)
	c.mu.Unlock()
	return c.reply, "stub", nil
}

func TestRun_FullStack(t *testing.T) {
	cfg := testConfig()
	store := memory.NewStore()
	repos := memory.NewRepositoryFactory(store)
	provider := embedding.NewStaticProvider("test", 8)

	goal := "Improve checkout conversion"
	resp, err := provider.Generate(context.Background(), goal, embedding.TaskRetrievalQuery)
	require.NoError(t, err)
	require.NoError(t, memory.NewKnowledgeEntryRepository(store).Create(context.Background(), &entity.KnowledgeEntry{
		Id:             uuid.New(),
		Title:          "Checkout friction",
		Content:        "Guest checkout reduces abandonment.",
		Category:       "conversion",
		Embedding:      resp.Embedding.Values,
		EmbeddingModel: provider.ModelVersion(),
	}))

	critic := &stubCritic{reply: "```json\n" + `{"summary":"Clear layout.","annotations":[{"category":"cta","severity":"critical","feedback":"Primary button is hidden below the fold","imageIndex":0,"x":0.5,"y":0.9}]}` + "\n```"}
	stages := DefaultStages(cfg, StageDeps{
		Retriever: retriever.NewRetriever(provider, repos, logger.NewNopLogger()),
		Assembler: ragcontext.NewAssembler(cfg.MaxEntryChars),
		Critic:    critic,
		Engine:    synthesis.NewEngine(),
		Scorer:    maturity.NewScorer(maturity.DefaultWeights()),
		Repos:     repos,
	})
	orch, err := NewOrchestrator(cfg, repos, stages, lock.NewMemoryLocker(), nil, logger.NewNopLogger())
	require.NoError(t, err)

	s := &entity.AnalysisSession{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Status:    entity.SessionDraft,
		ImageUrls: []string{"https://cdn.example.com/a.png"},
		Goal:      goal,
		Personas:  []string{"usability"},
	}
	require.NoError(t, repos.NewUnitOfWork(context.Background()).AnalysisSessionRepository().Create(context.Background(), s))

	require.NoError(t, orch.Run(context.Background(), s.Id))

	uow := repos.NewUnitOfWork(context.Background())
	result, err := uow.SynthesisResultRepository().FindBySession(context.Background(), s.Id)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.KnowledgeSourcesUsed)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "Checkout friction", result.Citations[0].Title)
	require.Len(t, result.PriorityMatrix.Critical, 1)

	score, err := uow.MaturityScoreRepository().FindBySession(context.Background(), s.Id)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 88, score.Score)
	assert.Equal(t, 1, score.CriticalCount)

	assert.Equal(t, []llm.Capability{llm.CapabilityVision}, critic.needs)

	rows, err := uow.StageResultRepository().FindBySession(context.Background(), s.Id)
	require.NoError(t, err)
	var prompts PromptPayload
	require.NoError(t, json.Unmarshal(rows[0].Payload, &prompts))
	require.Len(t, prompts.Prompts, 1)
	assert.Contains(t, prompts.Prompts[0].Prompt, "<research_context>")
	assert.Contains(t, prompts.Prompts[0].Prompt, "Guest checkout reduces abandonment.")
	assert.False(t, prompts.Degraded)
}
