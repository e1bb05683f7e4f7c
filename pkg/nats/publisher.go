package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const module = "nats"

type StreamSpec struct {
	Name      string
	Subjects  []string
	Retention jetstream.RetentionPolicy
}

var (
	// EventsStream carries lifecycle events for any interested consumer.
	EventsStream = StreamSpec{Name: "EVENTS", Subjects: []string{"events.>"}, Retention: jetstream.LimitsPolicy}
	// PipelineStream carries run requests; each message is delivered to one worker.
	PipelineStream = StreamSpec{Name: "PIPELINE", Subjects: []string{"pipeline.>"}, Retention: jetstream.WorkQueuePolicy}
)

// Publisher handles sending events and pipeline commands to NATS.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}

// NewPublisher connects and makes sure both streams exist.
func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, spec := range []StreamSpec{EventsStream, PipelineStream} {
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:      spec.Name,
			Subjects:  spec.Subjects,
			Storage:   jetstream.FileStorage,
			Retention: spec.Retention,
		})
		if err != nil {
			// may already exist with a different config, or NATS isn't ready yet
			log.Warn(module, "Failed to ensure stream", map[string]interface{}{"stream": spec.Name, "error": err.Error()})
		}
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends an event to events.<type>.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return p.PublishRaw(ctx, fmt.Sprintf("events.%s", event.EventType()), data)
}

func (p *Publisher) PublishRaw(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
