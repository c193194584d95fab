package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/PeterChen712/EcoSortify-sub002/internal/record"

	"github.com/redis/go-redis/v9"
)

// Event is one recording progress notification pushed to watchers of a
// session.
type Event struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"session_id"`
	TotalDistanceM float64         `json:"total_distance_m,omitempty"`
	Session        *record.Session `json:"session,omitempty"`
	At             time.Time       `json:"at"`
}

const (
	EventDistanceChanged = "distance_changed"
	EventSessionEnded    = "session_ended"
)

// Hub fans recording events out to per-session watchers, mirrored over
// redis pubsub so watchers on other instances see them too.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.deliverLocal(sessionID, payload)

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(sessionID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// deliverLocal fans the payload out to this instance's watchers. The
// sends stay under the read lock: Unregister closes Send under the
// write lock, so a send can never race the close. Sends are
// non-blocking, a slow watcher drops messages instead of stalling the
// caller.
func (h *Hub) deliverLocal(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// DistanceChanged implements record.EventSink.
func (h *Hub) DistanceChanged(sessionID string, totalDistanceM float64) {
	h.publishEvent(Event{
		Type:           EventDistanceChanged,
		SessionID:      sessionID,
		TotalDistanceM: totalDistanceM,
		At:             time.Now(),
	})
}

// SessionEnded implements record.EventSink.
func (h *Hub) SessionEnded(sessionID string, final record.Session) {
	h.publishEvent(Event{
		Type:      EventSessionEnded,
		SessionID: sessionID,
		Session:   &final,
		At:        time.Now(),
	})
}

func (h *Hub) publishEvent(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(ev.SessionID, payload)
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "recording:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliverLocal(sessionIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(sessionID string) string {
	return "recording:" + sessionID + ":events"
}

func sessionIDFromChannel(ch string) string {
	// recording:{session}:events
	const prefix = "recording:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
