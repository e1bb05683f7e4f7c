package service

import (
	"context"
	"testing"
	"time"

	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_RunsQueuedSessions(t *testing.T) {
	h := newHarness(t)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	queue := NewChannelRunQueue(pubSub, logger.NewNopLogger())
	consumer := NewConsumerService(queue, h.orchestrator, 2, logger.NewNopLogger())
	svc := NewAnalysisService(h.repos, queue, h.orchestrator, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx) }()

	userId := uuid.New()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, userId, createRequest())
		require.NoError(t, err)
		ids = append(ids, created.Id)
	}

	statusOf := func(id uuid.UUID) entity.SessionStatus {
		s, err := h.repos.NewUnitOfWork(ctx).AnalysisSessionRepository().FindById(ctx, id)
		if err != nil || s == nil {
			return ""
		}
		return s.Status
	}

	// gochannel drops messages published before the subscription exists, so keep asking
	require.Eventually(t, func() bool {
		for _, id := range ids {
			if statusOf(id) == entity.SessionDraft {
				if _, err := svc.Run(ctx, userId, id); err != nil {
					return false
				}
			}
		}
		for _, id := range ids {
			if statusOf(id) != entity.SessionCompleted {
				return false
			}
		}
		return true
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_HandleOutcomes(t *testing.T) {
	h := newHarness(t)
	cs := NewConsumerService(&recordingQueue{}, h.orchestrator, 1, logger.NewNopLogger()).(*consumerService)

	// unknown sessions are dropped, not redelivered
	assert.NoError(t, cs.handle(context.Background(), dto.RunAnalysisMessage{SessionId: uuid.New()}))
}
