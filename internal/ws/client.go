package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/typica-pos/api/internal/auth"
	"github.com/typica-pos/api/internal/enum"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10 // must stay below pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client is one connected order board. Boards only listen; whatever they
// send is read and discarded so pongs and close frames are processed.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	rooms []string
	send  chan []byte
}

// Handler upgrades GET /ws/orders?token=JWT to a board connection.
type Handler struct {
	hub       *Hub
	jwtSecret string
	upgrader  websocket.Upgrader
}

// NewHandler creates a Handler. origins is the browser allow-list; an
// empty list or "*" accepts any origin.
func NewHandler(hub *Hub, jwtSecret string, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the upgrade request, so the access
	// token travels in the query string.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Falta el token.", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(h.jwtSecret, token)
	if err != nil {
		http.Error(w, "Token inválido o expirado.", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARNING: websocket upgrade for %s: %v", claims.UserID, err)
		return
	}

	client := &Client{
		hub:   h.hub,
		conn:  conn,
		rooms: roomsFor(claims),
		send:  make(chan []byte, sendBuffer),
	}
	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go client.writeLoop()
	go client.readLoop()
}

// roomsFor maps a caller to the rooms it listens on. Waiters only follow
// their own orders; every other role follows the whole floor.
func roomsFor(claims *auth.Claims) []string {
	if claims.Role == enum.RoleMesero {
		return []string{UserRoom(claims.UserID.String())}
	}
	return []string{RoleRoom(claims.Role)}
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: websocket read: %v", err)
			}
			return
		}
	}
}

// writeLoop sends each event as its own text frame so clients can parse
// every message as one JSON document.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub dropped this client or is shutting down.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
