package socket

import (
	"context"
	"encoding/json"
	"sync"

	"transcriptionapi/pkg/logger"
)

const (
	CreatedType = "CREATED" // Transcription created
	UpdatedType = "UPDATED" // Text or duration changed
	DeletedType = "DELETED" // Transcription removed

	broadcastBuffer = 256
)

// Event is the message pushed to an owner's feed.
type Event struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type envelope struct {
	owner string
	event Event
}

// Hub fans change events out to the sockets of the owning user.
type Hub struct {
	Rooms      map[string]map[*Client]bool // owner uid -> clients
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	mu         sync.Mutex
	origins    map[string]bool
}

func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan envelope, broadcastBuffer),
		done:       make(chan struct{}),
		origins:    origins,
	}
}

// Run owns room membership until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for owner, clients := range h.Rooms {
				for client := range clients {
					close(client.Send)
				}
				delete(h.Rooms, owner)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.UserID] == nil {
				h.Rooms[client.UserID] = make(map[*Client]bool)
			}
			h.Rooms[client.UserID][client] = true
			h.mu.Unlock()
			logger.Sugar.Debugf("Client joined feed of user %s", client.UserID)

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg.event)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.Rooms[msg.owner] {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it instead of blocking the hub.
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.Rooms[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.Rooms, client.UserID)
	}
}

// Publish queues evt for owner's sockets. It never blocks the caller; events
// are dropped when the hub is saturated or stopped.
func (h *Hub) Publish(owner string, evt Event) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- envelope{owner: owner, event: evt}:
	default:
		logger.Sugar.Warnf("Event feed saturated, dropping %s event for %s", evt.Type, evt.ID)
	}
}

// ClientCount reports how many sockets are subscribed for owner.
func (h *Hub) ClientCount(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[owner])
}

func (h *Hub) allowOrigin(origin string) bool {
	return origin == "" || h.origins["*"] || h.origins[origin]
}
