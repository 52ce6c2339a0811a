package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/models"
	"github.com/AndreasAanestad/websync-station/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const feedWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Hub fans station feed events out to connected consoles. Publishing is
// non-blocking: the station emits events while holding its own lock, so a
// full queue drops the event rather than stalling the scheduler.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	stop       chan struct{}
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *utils.Logger
}

func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = true
			h.mutex.Unlock()
			h.logf("Console feed client connected")

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()
			h.logf("Console feed client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logf("Console feed write error: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mutex.Unlock()

		case <-h.stop:
			h.mutex.Lock()
			for conn := range h.clients {
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]bool)
			h.mutex.Unlock()
			return
		}
	}
}

// BroadcastEvent queues a feed event for delivery. Events are dropped when
// the queue is full or the hub has stopped.
func (h *Hub) BroadcastEvent(event models.FeedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logf("Console feed encode error: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// Stop ends the fan-out loop and closes every connected client. Safe to
// call once; HandleWebSocket rejects new upgrades afterwards.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-h.stop:
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		default:
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("Console feed upgrade error: %v", err)
			return
		}

		select {
		case h.register <- conn:
		case <-h.stop:
			conn.Close()
			return
		}

		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.stop:
				conn.Close()
			}
		}()

		// Clients never send application data; reading only detects close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logf("Console feed error: %v", err)
				}
				break
			}
		}
	}
}

func (h *Hub) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if h.logger != nil {
		h.logger.Write(msg)
		return
	}
	log.Println(msg)
}
