package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/events"
	"design-analysis-be/pkg/lock"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const module = "pipeline"

var tracer = otel.Tracer("pipeline")

// Orchestrator drives a session through the stage sequence. Runs of different
// sessions are independent; a session lock keeps one run per session.
type Orchestrator struct {
	cfg       Config
	repos     unitofwork.RepositoryFactory
	stages    []Stage
	locker    lock.Locker
	publisher events.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewOrchestrator(
	cfg Config,
	repos unitofwork.RepositoryFactory,
	stages []Stage,
	locker lock.Locker,
	publisher events.Publisher,
	log logger.ILogger,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(stages) != len(entity.StageOrder) {
		return nil, fmt.Errorf("%w: expected %d stages, got %d", ErrInvalidConfig, len(entity.StageOrder), len(stages))
	}
	for i, s := range stages {
		if s.Name() != entity.StageOrder[i] {
			return nil, fmt.Errorf("%w: stage %d is %s, expected %s", ErrInvalidConfig, i, s.Name(), entity.StageOrder[i])
		}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Orchestrator{
		cfg:       cfg,
		repos:     repos,
		stages:    stages,
		locker:    locker,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}, nil
}

func (o *Orchestrator) Config() Config { return o.cfg }

// Run executes one attempt for a draft or failed session. Stages that succeeded
// in an earlier attempt are recorded as skipped and their payloads reused, as
// long as every stage before them was reused too. The first failing stage
// halts the run and fails the session; nothing is retried automatically.
func (o *Orchestrator) Run(ctx context.Context, sessionId uuid.UUID) error {
	release, err := o.locker.Acquire(ctx, "analysis:"+sessionId.String(), o.cfg.LockTTL)
	if errors.Is(err, lock.ErrLocked) {
		return ErrSessionBusy
	}
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	defer release()

	uow := o.repos.NewUnitOfWork(ctx)
	sessions := uow.AnalysisSessionRepository()
	stageLog := uow.StageResultRepository()

	session, err := sessions.FindById(ctx, sessionId)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Status != entity.SessionDraft && session.Status != entity.SessionFailed {
		return fmt.Errorf("%w: %s", ErrSessionNotRunnable, session.Status)
	}

	history, err := stageLog.FindBySession(ctx, sessionId)
	if err != nil {
		return fmt.Errorf("load stage log: %w", err)
	}
	reusable := reusablePayloads(history)

	attempt := session.Attempt + 1
	empty := ""
	ok, err := sessions.Transition(ctx, sessionId,
		[]entity.SessionStatus{entity.SessionDraft, entity.SessionFailed},
		contract.SessionPatch{
			Status:      entity.SessionProcessing,
			Attempt:     &attempt,
			LastError:   &empty,
			ClearCancel: true,
			ClearCommit: true,
			UpdatedAt:   o.now(),
		})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if !ok {
		return ErrSessionNotRunnable
	}
	session.Status = entity.SessionProcessing
	session.Attempt = attempt

	o.logger.Info(module, "Pipeline run started", map[string]interface{}{
		"session_id": sessionId.String(),
		"attempt":    attempt,
		"reusable":   len(reusable),
	})

	req := StageRequest{Session: session, Attempt: attempt, Prior: map[entity.StageName]json.RawMessage{}}
	reusing := true
	noReturn := entity.StageIndex(o.cfg.NoReturnStage)

	for i, stage := range o.stages {
		name := stage.Name()

		if err := o.checkBoundary(ctx, session); err != nil {
			return err
		}
		if err := sessions.Touch(ctx, sessionId, o.now()); err != nil {
			return fmt.Errorf("heartbeat: %w", err)
		}
		if i == noReturn {
			committed, err := sessions.Commit(ctx, sessionId, attempt, o.now())
			if err != nil {
				return fmt.Errorf("commit session: %w", err)
			}
			if !committed {
				// a cancel or reset landed after the boundary check
				if err := o.checkBoundary(ctx, session); err != nil {
					return err
				}
				return ErrRunSuperseded
			}
		}

		if payload, ok := reusable[name]; ok && reusing {
			if err := stageLog.Append(ctx, &entity.StageResult{
				SessionId: sessionId,
				Attempt:   attempt,
				Stage:     name,
				Status:    entity.StageSkipped,
				StartedAt: o.now(),
				Payload:   payload,
			}); err != nil {
				return fmt.Errorf("record skipped %s: %w", name, err)
			}
			req.Prior[name] = payload
			continue
		}
		reusing = false

		payload, err := o.runStage(ctx, stageLog, stage, req)
		if err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				o.fail(ctx, session, stageErr)
			}
			return err
		}
		req.Prior[name] = payload
	}

	now := o.now()
	ok, err = sessions.Transition(ctx, sessionId, []entity.SessionStatus{entity.SessionProcessing},
		contract.SessionPatch{Status: entity.SessionCompleted, CompletedAt: &now, ClearCancel: true, UpdatedAt: now})
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if !ok {
		o.logger.Warn(module, "Session left processing before completion", map[string]interface{}{"session_id": sessionId.String()})
		return ErrRunSuperseded
	}

	o.publish(ctx, events.AnalysisCompleted, session, nil)
	o.logger.Info(module, "Pipeline run completed", map[string]interface{}{"session_id": sessionId.String(), "attempt": attempt})
	return nil
}

type stageOutcome struct {
	payload json.RawMessage
	err     error
}

// runStage records a running row, invokes the stage under its timeout and
// finalizes the row. A timed-out call keeps running; its result is discarded.
// A row closed by someone else in the meantime ends the run with ErrRunSuperseded.
func (o *Orchestrator) runStage(ctx context.Context, stageLog contract.StageResultRepository, stage Stage, req StageRequest) (json.RawMessage, error) {
	name := stage.Name()
	started := o.now()

	row := &entity.StageResult{
		SessionId: req.Session.Id,
		Attempt:   req.Attempt,
		Stage:     name,
		Status:    entity.StageRunning,
		StartedAt: started,
	}
	if err := stageLog.Append(ctx, row); err != nil {
		return nil, newStageError(name, entity.StageError, 0, fmt.Errorf("record start: %w", err))
	}

	spanCtx, span := tracer.Start(ctx, "stage."+string(name))
	span.SetAttributes(
		attribute.String("session.id", req.Session.Id.String()),
		attribute.Int("session.attempt", req.Attempt),
	)
	defer span.End()

	stageCtx, cancel := context.WithTimeout(spanCtx, o.cfg.Timeout(name))
	defer cancel()

	done := make(chan stageOutcome, 1)
	go func() {
		payload, err := stage.Invoke(stageCtx, req)
		done <- stageOutcome{payload: payload, err: err}
	}()

	var out stageOutcome
	status := entity.StageSuccess
	select {
	case out = <-done:
		if out.err != nil {
			status = entity.StageError
		}
	case <-stageCtx.Done():
		if ctx.Err() != nil {
			status, out.err = entity.StageError, fmt.Errorf("interrupted: %w", ctx.Err())
		} else {
			status, out.err = entity.StageTimeout, fmt.Errorf("%w after %s", ErrStageTimeout, o.cfg.Timeout(name))
		}
	}
	elapsed := o.now().Sub(started)

	outcome := contract.StageOutcome{Status: status, DurationMs: elapsed.Milliseconds()}
	var stageErr *StageError
	if status == entity.StageSuccess {
		outcome.Payload = out.payload
	} else {
		stageErr = newStageError(name, status, elapsed, out.err)
		outcome.ErrorKind = string(stageErr.Kind)
		outcome.ErrorText = out.err.Error()
		span.RecordError(out.err)
		span.SetStatus(codes.Error, string(status))
	}

	// finalize with a fresh context so an interrupted run still closes its row
	finCtx, finCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer finCancel()
	finalized, err := stageLog.Finalize(finCtx, row.Id, outcome)
	if err != nil && stageErr == nil {
		stageErr = newStageError(name, entity.StageError, elapsed, fmt.Errorf("record result: %w", err))
	}
	if err == nil && !finalized {
		o.logger.Warn(module, "Stage result discarded, row already closed", map[string]interface{}{
			"session_id": req.Session.Id.String(),
			"stage":      string(name),
			"status":     string(status),
		})
		return nil, ErrRunSuperseded
	}

	o.logger.Info(module, "Stage finished", map[string]interface{}{
		"session_id":  req.Session.Id.String(),
		"stage":       string(name),
		"status":      string(status),
		"duration_ms": elapsed.Milliseconds(),
	})
	if stageErr != nil {
		return nil, stageErr
	}
	return out.payload, nil
}

func (o *Orchestrator) fail(ctx context.Context, session *entity.AnalysisSession, stageErr *StageError) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	msg := fmt.Sprintf("%s: %v", stageErr.Stage, stageErr.Err)
	_, err := o.repos.NewUnitOfWork(ctx).AnalysisSessionRepository().Transition(ctx, session.Id,
		[]entity.SessionStatus{entity.SessionProcessing},
		contract.SessionPatch{Status: entity.SessionFailed, LastError: &msg, UpdatedAt: o.now()})
	if err != nil {
		o.logger.Error(module, "Failed to mark session failed", map[string]interface{}{"session_id": session.Id.String(), "error": err.Error()})
	}

	o.logger.Warn(module, "Pipeline run failed", map[string]interface{}{
		"session_id":  session.Id.String(),
		"stage":       string(stageErr.Stage),
		"status":      string(stageErr.Status),
		"kind":        string(stageErr.Kind),
		"duration_ms": stageErr.Duration.Milliseconds(),
		"error":       stageErr.Err.Error(),
	})
	o.publish(ctx, events.AnalysisFailed, session, map[string]interface{}{
		"stage":    string(stageErr.Stage),
		"kind":     string(stageErr.Kind),
		"guidance": stageErr.Kind.Guidance(),
	})
}

// checkBoundary runs between stages. It stops the run when the session is no
// longer processing this attempt, and honors a pending cancel request.
func (o *Orchestrator) checkBoundary(ctx context.Context, session *entity.AnalysisSession) error {
	sessions := o.repos.NewUnitOfWork(ctx).AnalysisSessionRepository()

	current, err := sessions.FindById(ctx, session.Id)
	if err != nil {
		return fmt.Errorf("reload session: %w", err)
	}
	if current == nil || current.Status != entity.SessionProcessing || current.Attempt != session.Attempt {
		details := map[string]interface{}{"session_id": session.Id.String(), "attempt": session.Attempt}
		if current != nil {
			details["status"] = string(current.Status)
			details["current_attempt"] = current.Attempt
		}
		o.logger.Warn(module, "Pipeline run superseded", details)
		return ErrRunSuperseded
	}
	if !current.CancelRequested() {
		return nil
	}

	now := o.now()
	ok, err := sessions.Transition(ctx, session.Id, []entity.SessionStatus{entity.SessionProcessing},
		contract.SessionPatch{Status: entity.SessionCancelled, CompletedAt: &now, UpdatedAt: now})
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	if ok {
		o.logger.Info(module, "Pipeline run cancelled", map[string]interface{}{"session_id": session.Id.String()})
		o.publish(ctx, events.AnalysisCancelled, session, nil)
	}
	return ErrRunCancelled
}

// Cancel cancels a draft session immediately or asks a running one to stop at
// the next stage boundary. Terminal sessions and runs past the no-return stage
// are rejected with ErrCancellationRejected.
func (o *Orchestrator) Cancel(ctx context.Context, sessionId, userId uuid.UUID) (bool, error) {
	sessions := o.repos.NewUnitOfWork(ctx).AnalysisSessionRepository()

	session, err := sessions.FindById(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return false, ErrSessionNotFound
	}
	if session.UserId != userId {
		return false, ErrAccessDenied
	}

	if session.Status == entity.SessionDraft {
		now := o.now()
		ok, err := sessions.Transition(ctx, sessionId, []entity.SessionStatus{entity.SessionDraft},
			contract.SessionPatch{Status: entity.SessionCancelled, CompletedAt: &now, UpdatedAt: now})
		if err != nil {
			return false, fmt.Errorf("cancel session: %w", err)
		}
		if ok {
			o.publish(ctx, events.AnalysisCancelled, session, nil)
			return true, nil
		}
		// started meanwhile
		if session, err = sessions.FindById(ctx, sessionId); err != nil {
			return false, fmt.Errorf("reload session: %w", err)
		}
	}

	if session.Status != entity.SessionProcessing {
		return false, fmt.Errorf("%w: session is %s", ErrCancellationRejected, session.Status)
	}
	if session.CommittedAt != nil {
		return false, fmt.Errorf("%w: %s has already started", ErrCancellationRejected, o.cfg.NoReturnStage)
	}

	ok, err := sessions.RequestCancel(ctx, sessionId, o.now())
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	if ok {
		return true, nil
	}

	current, err := sessions.FindById(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("reload session: %w", err)
	}
	if current != nil && current.Status == entity.SessionProcessing && current.CommittedAt != nil {
		return false, fmt.Errorf("%w: %s has already started", ErrCancellationRejected, o.cfg.NoReturnStage)
	}
	return false, fmt.Errorf("%w: session is no longer running", ErrCancellationRejected)
}

// ResetStuck fails processing sessions whose heartbeat is older than staleAfter
// and closes their dangling running stage rows. It returns the number reset.
// staleAfter must exceed the longest stage timeout, otherwise a live run
// could be reset mid-stage.
func (o *Orchestrator) ResetStuck(ctx context.Context, staleAfter time.Duration) (int, error) {
	if staleAfter <= 0 {
		staleAfter = o.cfg.StaleAfter
	}
	if longest := o.cfg.LongestStageTimeout(); staleAfter <= longest {
		return 0, fmt.Errorf("%w: stale window %s must exceed the longest stage timeout %s", ErrInvalidConfig, staleAfter, longest)
	}
	uow := o.repos.NewUnitOfWork(ctx)
	sessions := uow.AnalysisSessionRepository()

	cutoff := o.now().Add(-staleAfter)
	stuck, err := sessions.FindStuck(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stuck sessions: %w", err)
	}

	count := 0
	for _, s := range stuck {
		reason := fmt.Sprintf("reset: no progress since %s", s.UpdatedAt.UTC().Format(time.RFC3339))
		ok, err := sessions.Transition(ctx, s.Id, []entity.SessionStatus{entity.SessionProcessing},
			contract.SessionPatch{Status: entity.SessionFailed, LastError: &reason, UpdatedAt: o.now()})
		if err != nil {
			return count, fmt.Errorf("reset session %s: %w", s.Id, err)
		}
		if !ok {
			continue
		}
		abandoned, err := uow.StageResultRepository().AbandonRunning(ctx, s.Id, reason)
		if err != nil {
			o.logger.Error(module, "Failed to close running stages", map[string]interface{}{"session_id": s.Id.String(), "error": err.Error()})
		}
		count++

		o.logger.Warn(module, "Stuck session reset", map[string]interface{}{
			"session_id":       s.Id.String(),
			"last_heartbeat":   s.UpdatedAt,
			"abandoned_stages": abandoned,
		})
		o.publish(ctx, events.AnalysisReset, s, map[string]interface{}{"reason": reason})
	}
	return count, nil
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, s *entity.AnalysisSession, extra map[string]interface{}) {
	evt := events.NewAnalysisEvent(eventType, s.Id, s.UserId, s.Attempt, extra)
	if err := o.publisher.Publish(ctx, evt); err != nil {
		o.logger.Error(module, "Failed to publish event", map[string]interface{}{"type": eventType, "error": err.Error()})
	}
}

// reusablePayloads returns, per stage, the payload of its latest successful or
// reused row across earlier attempts.
func reusablePayloads(rows []*entity.StageResult) map[entity.StageName]json.RawMessage {
	out := make(map[entity.StageName]json.RawMessage)
	for _, r := range rows {
		if (r.Status == entity.StageSuccess || r.Status == entity.StageSkipped) && len(r.Payload) > 0 {
			out[r.Stage] = r.Payload
		}
	}
	return out
}
