package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/errwatch/errwatch-backend/internal/events"
	"github.com/errwatch/errwatch-backend/pkg/logger"
)

const redisPubSubChannel = "errwatch:events"

// Event is a real-time engine event pushed to dashboard clients
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans engine events out to connected WebSocket clients. When Redis
// is available events are relayed through a pub/sub channel so every
// collector instance's clients see every event.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu          sync.RWMutex
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewHub creates a new Hub
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 256),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Topics implements events.Subscriber: the hub mirrors every engine event
func (h *Hub) Topics() []string {
	return []string{
		events.TopicErrorCaptured,
		events.TopicErrorGrouped,
		events.TopicAlertTriggered,
		events.TopicErrorResolved,
		events.TopicErrorAssigned,
		events.TopicNoteAdded,
		events.TopicPatternDetected,
		events.TopicCorrelationDetected,
		events.TopicImpactPrediction,
		events.TopicInsightsGenerated,
	}
}

// Handle implements events.Subscriber. With Redis the event goes through
// the shared channel (and comes back via subscribeRedis); without it the
// event is broadcast to local clients directly.
func (h *Hub) Handle(ctx context.Context, evt events.Event) {
	data, err := json.Marshal(Event{Type: evt.Type, Payload: evt.Payload})
	if err != nil {
		logger.Warn("ws: failed to marshal event %s: %v", evt.Type, err)
		return
	}

	if h.redisClient != nil {
		if err := h.redisClient.Publish(ctx, redisPubSubChannel, data).Err(); err != nil {
			logger.Warn("ws: redis publish failed: %v", err)
			h.Broadcast(data)
		}
		return
	}
	h.Broadcast(data)
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Broadcast queues a raw message for all connected clients. Drops the
// message if the hub's queue is full rather than blocking the caller.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: skip rather than block the hub
				}
			}
			h.mu.RUnlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// subscribeRedis relays events published by any collector instance
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast([]byte(msg.Payload))
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop shuts the hub down
func (h *Hub) Stop() {
	h.cancel()
}
