package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	hubBuffer    = 64
	writeTimeout = 5 * time.Second
)

// Envelope is one bus event as streamed to control clients.
type Envelope struct {
	Topic string    `json:"topic"`
	Event any       `json:"event"`
	At    time.Time `json:"at"`
}

// Hub fans events out to websocket subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]chan []byte
	closed bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]chan []byte)}
}

func (h *Hub) Publish(topic string, event any) {
	data, err := json.Marshal(Envelope{Topic: topic, Event: event, At: time.Now().UTC()})
	if err != nil {
		log.Printf("ws event encode failed topic=%s error=%v", topic, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.conns {
		select {
		case out <- data:
		default:
			log.Printf("ws event dropped topic=%s", topic)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, out := range h.conns {
		close(out)
		delete(h.conns, conn)
	}
}

func (h *Hub) add(conn *websocket.Conn) (chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	out := make(chan []byte, hubBuffer)
	h.conns[conn] = out
	return out, true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.conns[conn]; ok {
		close(out)
		delete(h.conns, conn)
	}
}

func (s *Server) handleEvents(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	out, ok := s.hub.add(conn)
	if !ok {
		_ = conn.Close()
		return
	}
	log.Printf("ws connected events remote=%s", conn.RemoteAddr())
	go writeEvents(conn, out)
	go s.readEvents(conn)
}

func writeEvents(conn *websocket.Conn, out <-chan []byte) {
	defer conn.Close()
	for data := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws write failed remote=%s error=%v", conn.RemoteAddr(), err)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (s *Server) readEvents(conn *websocket.Conn) {
	defer s.hub.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected events error=%v", err)
			return
		}
	}
}
