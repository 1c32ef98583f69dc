package services

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"castflow/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// LogStreamMessage is the wire frame pushed to subscribed clients.
type LogStreamMessage struct {
	Type      string               `json:"type"`
	Log       *models.AutomationLog `json:"log,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type logStreamClient struct {
	id      string
	trigger string // empty means all triggers
	conn    *websocket.Conn
	send    chan LogStreamMessage
	hub     *LogStreamHub
}

// LogStreamHub fans execution log entries out to websocket subscribers.
// It implements LogSink so the engine can publish without knowing about
// the transport.
type LogStreamHub struct {
	clients    map[string]*logStreamClient
	broadcast  chan LogStreamMessage
	register   chan *logStreamClient
	unregister chan *logStreamClient
	mutex      sync.RWMutex
}

var logStreamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewLogStreamHub() *LogStreamHub {
	return &LogStreamHub{
		clients:    make(map[string]*logStreamClient),
		broadcast:  make(chan LogStreamMessage, 64),
		register:   make(chan *logStreamClient),
		unregister: make(chan *logStreamClient),
	}
}

// PublishLog satisfies LogSink. Non-blocking so a slow subscriber can
// never stall an automation run.
func (h *LogStreamHub) PublishLog(entry models.AutomationLog) {
	msg := LogStreamMessage{
		Type:      "automation-log",
		Log:       &entry,
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- msg:
	default:
		logrus.Warn("Log stream broadcast buffer full, dropping entry")
	}
}

func (h *LogStreamHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.id] = client
			h.mutex.Unlock()
			logrus.Infof("Log stream client %s connected", client.id)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
				logrus.Infof("Log stream client %s disconnected", client.id)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for _, client := range h.clients {
				if client.trigger != "" && message.Log != nil && client.trigger != message.Log.TriggerName {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client.id)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// HandleWebSocket upgrades the connection and starts streaming. The
// optional trigger query parameter narrows the stream to one trigger.
func (h *LogStreamHub) HandleWebSocket(c *gin.Context) {
	conn, err := logStreamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Error("WebSocket upgrade failed:", err)
		return
	}

	client := &logStreamClient{
		id:      fmt.Sprintf("client_%d", time.Now().UnixNano()),
		trigger: c.Query("trigger"),
		conn:    conn,
		send:    make(chan LogStreamMessage, 256),
		hub:     h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump only services control frames; the stream is one-way.
func (c *logStreamClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *logStreamClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.Error("WriteJSON error:", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount reports the current number of subscribers.
func (h *LogStreamHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
