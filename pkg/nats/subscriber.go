package nats

import (
	"context"
	"fmt"

	"design-analysis-be/internal/pkg/logger"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// MessageHandler processes one message. A returned error naks it for redelivery.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber handles listening for messages from NATS.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe registers a handler on a durable consumer of stream.
// The returned context stops consumption.
func (s *Subscriber) Subscribe(ctx context.Context, stream StreamSpec, subject, durableName string, handler MessageHandler) (jetstream.ConsumeContext, error) {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, stream.Name, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
			s.logger.Error(module, "Handler failed", map[string]interface{}{"subject": msg.Subject(), "error": err.Error()})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	s.logger.Info(module, "Subscribed", map[string]interface{}{"subject": subject, "durable": durableName})
	return cc, nil
}

// Close closes the connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
