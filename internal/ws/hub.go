package ws

import (
	"context"
	"encoding/json"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes one event to every client in any of the listed rooms
type roomEvent struct {
	Rooms []string
	Event Event
}

// RoleRoom is the room joined by every client of a role.
func RoleRoom(role string) string { return "role:" + role }

// UserRoom is the room joined by a single user's clients.
func UserRoom(userID string) string { return "user:" + userID }

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room name
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *roomEvent

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return nil

		case client := <-h.register:
			h.mu.Lock()
			for _, room := range client.rooms {
				if h.rooms[room] == nil {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			// A client sitting in several target rooms gets the message once.
			sent := make(map[*Client]bool)
			var slow []*Client
			for _, room := range event.Rooms {
				for client := range h.rooms[room] {
					if sent[client] {
						continue
					}
					sent[client] = true
					select {
					case client.send <- message:
					default:
						slow = append(slow, client)
					}
				}
			}
			for _, client := range slow {
				h.drop(client)
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from all its rooms and closes its send channel.
// Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	registered := false
	for _, room := range client.rooms {
		clients, ok := h.rooms[room]
		if !ok || !clients[client] {
			continue
		}
		registered = true
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if registered {
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*Client]bool)
	for _, clients := range h.rooms {
		for client := range clients {
			if !seen[client] {
				seen[client] = true
				close(client.send)
			}
		}
	}
	h.rooms = make(map[string]map[*Client]bool)
}

// join registers client; it reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client unless the hub has already stopped.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToRooms sends an event to every client subscribed to any of rooms.
func (h *Hub) BroadcastToRooms(rooms []string, event Event) {
	select {
	case h.broadcast <- &roomEvent{Rooms: rooms, Event: event}:
	case <-h.done:
	}
}

// ClientCount returns the number of clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
