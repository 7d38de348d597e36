package rooms

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"syncwatch/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

// Event is the WebSocket envelope, both directions.
type Event struct {
	Type     string          `json:"type"`
	Room     string          `json:"room,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
	UserName string          `json:"user_name,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Hub fans room events out to every connected member.
type Hub struct {
	manager  *Manager
	logger   *utils.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*client]struct{} // room code -> members
}

type client struct {
	hub    *Hub
	room   string
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewHub(manager *Manager, logger *utils.Logger) *Hub {
	return &Hub{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Streaming requests are unauthenticated too; same trust model.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]map[*client]struct{}),
	}
}

// ServeWS upgrades the connection and pumps events for one room member.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomCode, userID string) {
	if _, err := h.manager.Get(roomCode); err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed:", err)
		return
	}

	c := &client{hub: h, room: roomCode, userID: userID, conn: conn, send: make(chan []byte, 32)}
	h.register(c)

	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.room] == nil {
		h.clients[c.room] = make(map[*client]struct{})
	}
	h.clients[c.room][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.clients[c.room]
	if !ok {
		return
	}
	// Broadcast may have already dropped this client and closed its
	// channel; only close while it is still a member.
	if _, present := members[c]; !present {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.clients, c.room)
	}
	close(c.send)
}

// Broadcast sends an event to every member of a room. Slow consumers are
// dropped rather than allowed to stall the room.
func (h *Hub) Broadcast(roomCode string, ev Event) {
	ev.Room = roomCode
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to marshal room event:", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[roomCode] {
		select {
		case c.send <- data:
		default:
			delete(h.clients[roomCode], c)
			close(c.send)
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.hub.logger.Warn("Dropping malformed room event:", err)
			continue
		}
		c.hub.handleEvent(c, ev)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

type chatPayload struct {
	Message string `json:"message"`
}

type mediaPayload struct {
	URL      string  `json:"url"`
	Type     string  `json:"type"`
	State    string  `json:"state"`
	Position float64 `json:"position"`
}

// handleEvent applies one inbound event to the room and echoes the result
// to every member, sender included, so all clients converge on the same
// state.
func (h *Hub) handleEvent(c *client, ev Event) {
	switch ev.Type {
	case "chat":
		var p chatPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Message == "" {
			return
		}
		msg, err := h.manager.PostChat(c.room, c.userID, p.Message)
		if err != nil {
			return
		}
		payload, _ := json.Marshal(msg)
		h.Broadcast(c.room, Event{Type: "chat", UserID: msg.UserID, UserName: msg.UserName, Payload: payload})

	case "media_set":
		var p mediaPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.URL == "" {
			return
		}
		state, err := h.manager.SetMedia(c.room, c.userID, p.URL, p.Type)
		if err != nil {
			return
		}
		payload, _ := json.Marshal(state)
		h.Broadcast(c.room, Event{Type: "media_set", UserID: c.userID, Payload: payload})

	case "media_play", "media_pause", "media_seek":
		var p mediaPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		playState := "playing"
		if ev.Type == "media_pause" {
			playState = "paused"
		} else if ev.Type == "media_seek" && p.State != "" {
			playState = p.State
		}
		state, err := h.manager.UpdatePlayback(c.room, c.userID, playState, p.Position)
		if err != nil {
			return
		}
		payload, _ := json.Marshal(state)
		h.Broadcast(c.room, Event{Type: ev.Type, UserID: c.userID, Payload: payload})

	default:
		h.logger.Debug("Ignoring unknown room event type:", ev.Type)
	}
}
