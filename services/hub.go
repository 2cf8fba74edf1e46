package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
)

// Feed message types broadcast to quiz viewers.
const (
	EventLikeCount      = "like_count"
	EventCommentAdded   = "comment_added"
	EventCommentUpdated = "comment_updated"
	EventCommentDeleted = "comment_deleted"
	EventCommentHidden  = "comment_hidden"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Notifier publishes quiz events. A nil Notifier is valid and drops events.
type Notifier interface {
	Broadcast(quizID uuid.UUID, messageType string, payload interface{})
}

type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	log        *logger.Logger
}

type Client struct {
	hub    *Hub
	id     uuid.UUID
	quizID uuid.UUID
	socket *websocket.Conn
	send   chan []byte
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.Component("hub"),
	}
}

// Run owns client registration until ctx is cancelled, then disconnects
// every remaining viewer.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			viewers, ok := h.clients[client.quizID]
			if !ok {
				viewers = make(map[*Client]bool)
				h.clients[client.quizID] = viewers
			}
			viewers[client] = true
			n := len(viewers)
			h.mutex.Unlock()
			h.log.Debug("viewer registered", "client_id", client.id, "quiz_id", client.quizID, "viewers", n)

		case client := <-h.unregister:
			h.mutex.Lock()
			h.remove(client)
			h.mutex.Unlock()
			h.log.Debug("viewer unregistered", "client_id", client.id, "quiz_id", client.quizID)

		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for _, viewers := range h.clients {
				for client := range viewers {
					h.remove(client)
				}
			}
			h.mutex.Unlock()
			return nil
		}
	}
}

// remove must be called with the write lock held.
func (h *Hub) remove(client *Client) {
	viewers, ok := h.clients[client.quizID]
	if !ok || !viewers[client] {
		return
	}
	delete(viewers, client)
	close(client.send)
	if len(viewers) == 0 {
		delete(h.clients, client.quizID)
	}
}

// Broadcast sends one message to every viewer of a quiz. Viewers whose send
// buffer is full are disconnected.
func (h *Hub) Broadcast(quizID uuid.UUID, messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		h.log.Error("marshal feed message", "type", messageType, "error", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	sent := 0
	for client := range h.clients[quizID] {
		select {
		case client.send <- data:
			sent++
		default:
			h.log.Warn("viewer send buffer full, disconnecting", "client_id", client.id, "quiz_id", quizID)
			h.remove(client)
		}
	}
	h.log.Debug("feed message sent", "type", messageType, "quiz_id", quizID, "viewers", sent)
}

func (h *Hub) Viewers(quizID uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[quizID])
}

// Serve attaches an upgraded connection to the quiz feed and starts its
// pumps. It returns immediately, or closes conn and returns nil once the
// hub has stopped.
func (h *Hub) Serve(conn *websocket.Conn, quizID uuid.UUID) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.New(),
		quizID: quizID,
		socket: conn,
		send:   make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return client
}

// reply queues a message for a single client if it is still registered.
func (h *Hub) reply(client *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client.quizID][client] {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.log.Debug("ignoring malformed feed message", "client_id", c.id)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		c.hub.reply(c, Message{Type: "pong", Payload: "pong"})
	default:
		c.hub.log.Debug("unknown feed message type", "type", msg.Type, "client_id", c.id)
	}
}
