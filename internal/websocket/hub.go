package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// roles allowed to watch realtime stock events
var dashboardRoles = map[string]bool{
	model.RoleAdmin: true,
	model.RoleStaff: true,
	model.RoleNurse: true,
}

const broadcastBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced on the HTTP API; dashboards may be served from any origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// Message is the frame pushed to dashboards
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	log := logger.WithComponent("websocket")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Int("clients", h.ClientCount()).Msg("client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Debug().Msg("client disconnected")
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected dashboards
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues an event for every connected client. It never blocks:
// when the broadcast queue is full the event is dropped and logged.
func (h *Hub) Publish(event string, data interface{}) {
	log := logger.WithComponent("websocket")

	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	select {
	case h.Broadcast <- payload:
	default:
		log.Warn().Str("event", event).Msg("broadcast queue full, event dropped")
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only drains the socket so close frames are noticed
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log := logger.WithComponent("websocket")
				log.Warn().Err(err).Msg("unexpected close")
			}
			break
		}
	}
}

// ServeWs authenticates the ?token= query parameter and upgrades the connection
func ServeWs(hub *Hub, c *gin.Context, auth *middleware.Auth) {
	log := logger.WithComponent("websocket")

	claims, err := auth.ParseToken(c.Query("token"))
	if err != nil {
		log.Info().Err(err).Msg("connection rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !dashboardRoles[claims.Role] {
		log.Info().Str("role", claims.Role).Msg("connection rejected: inadequate permissions")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("upgrade failed")
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
