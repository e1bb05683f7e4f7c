package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "design-analysis:events"

// Hub pushes analysis lifecycle events to the session owner's open connections.
// It implements events.Publisher.
type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance relay, nil when running alone
	rdb        *redis.Client
	instanceId string

	logger logger.ILogger
}

type frame struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type relay struct {
	Origin       string          `json:"origin"`
	TargetUserId string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// Run serves register/unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for userId, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, userId)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserID]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
				h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
			}
			h.mu.Unlock()
		}
	}
}

// Publish delivers the event to local connections of the user named in its payload
// and relays it to other instances through Redis.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	raw, _ := payload["user_id"].(string)
	userId, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}

	data, err := json.Marshal(frame{Type: event.EventType(), Data: payload, OccurredAt: event.Timestamp()})
	if err != nil {
		return err
	}

	h.deliver(userId, data)

	if h.rdb != nil {
		msg, _ := json.Marshal(relay{Origin: h.instanceId, TargetUserId: userId.String(), Message: data})
		if err := h.rdb.Publish(ctx, clusterChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Redis relay failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// ConnectedClients reports how many connections a user has on this instance.
func (h *Hub) ConnectedClients(userId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userId])
}

// deliver never blocks: a client whose buffer is full misses the frame.
func (h *Hub) deliver(userId uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[userId] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": userId})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload relay
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceId {
			continue
		}
		userId, err := uuid.Parse(payload.TargetUserId)
		if err != nil {
			continue
		}
		h.deliver(userId, payload.Message)
	}
}
