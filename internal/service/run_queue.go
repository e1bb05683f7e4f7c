package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/pkg/logger"
	pktNats "design-analysis-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"golang.org/x/sync/errgroup"
)

const (
	RunAnalysisTopic   = "pipeline.run"
	runConsumerDurable = "pipeline-workers"
)

// RunHandler processes one run request. A returned error asks for redelivery.
type RunHandler func(ctx context.Context, msg dto.RunAnalysisMessage) error

// IRunQueue decouples "run this session" requests from the workers that execute them.
type IRunQueue interface {
	Publish(ctx context.Context, msg dto.RunAnalysisMessage) error
	// Consume blocks until ctx is done, running at most workers handlers at once.
	Consume(ctx context.Context, workers int, handle RunHandler) error
}

type channelRunQueue struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger logger.ILogger
}

// NewChannelRunQueue is the in-process queue used when no broker is configured.
func NewChannelRunQueue(pubSub *gochannel.GoChannel, log logger.ILogger) IRunQueue {
	return &channelRunQueue{pubSub: pubSub, topic: RunAnalysisTopic, logger: log}
}

func (q *channelRunQueue) Publish(ctx context.Context, msg dto.RunAnalysisMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	m := message.NewMessage(watermill.NewUUID(), payload)
	m.SetContext(ctx)
	return q.pubSub.Publish(q.topic, m)
}

func (q *channelRunQueue) Consume(ctx context.Context, workers int, handle RunHandler) error {
	messages, err := q.pubSub.Subscribe(ctx, q.topic)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for msg := range messages {
				q.process(gctx, msg, handle)
			}
			return nil
		})
	}
	return g.Wait()
}

func (q *channelRunQueue) process(ctx context.Context, msg *message.Message, handle RunHandler) {
	var payload dto.RunAnalysisMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		q.logger.Error("queue", "Failed to unmarshal run request", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads are never retried
		return
	}
	if err := handle(ctx, payload); err != nil {
		msg.Nack()
		return
	}
	msg.Ack()
}

type natsRunQueue struct {
	pub    *pktNats.Publisher
	sub    *pktNats.Subscriber
	logger logger.ILogger
}

// NewNatsRunQueue shares run requests between processes through the PIPELINE work-queue stream.
func NewNatsRunQueue(pub *pktNats.Publisher, sub *pktNats.Subscriber, log logger.ILogger) IRunQueue {
	return &natsRunQueue{pub: pub, sub: sub, logger: log}
}

func (q *natsRunQueue) Publish(ctx context.Context, msg dto.RunAnalysisMessage) error {
	if q.pub == nil {
		return errors.New("nats publisher is not connected")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.pub.PublishRaw(ctx, RunAnalysisTopic, payload)
}

func (q *natsRunQueue) Consume(ctx context.Context, workers int, handle RunHandler) error {
	if q.sub == nil {
		return errors.New("nats subscriber is not connected")
	}

	handler := func(ctx context.Context, subject string, data []byte) error {
		var payload dto.RunAnalysisMessage
		if err := json.Unmarshal(data, &payload); err != nil {
			q.logger.Error("queue", "Failed to unmarshal run request", map[string]interface{}{"subject": subject, "error": err.Error()})
			return nil
		}
		return handle(ctx, payload)
	}

	// one Consume per worker on the shared durable; each delivers messages serially
	for i := 0; i < workers; i++ {
		cc, err := q.sub.Subscribe(ctx, pktNats.PipelineStream, RunAnalysisTopic, runConsumerDurable, handler)
		if err != nil {
			return fmt.Errorf("worker %d: %w", i, err)
		}
		defer cc.Stop()
	}

	<-ctx.Done()
	return nil
}
