package emulator

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // sandbox only
	},
}

// Event is pushed to websocket subscribers when a payment changes status
type Event struct {
	Type          string `json:"type"`
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"payment_status"`
	Timestamp     int64  `json:"timestamp"`
}

func newEvent(eventType string, p *Payment) Event {
	return Event{
		Type:          eventType,
		PaymentID:     p.PaymentID,
		TransactionID: p.TransactionID,
		OrderID:       p.OrderID,
		Status:        string(p.Status),
		Timestamp:     p.UpdatedAt.Unix(),
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans payment events out to every connected websocket client
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
	}
}

// Publish sends ev to all subscribers. Slow subscribers drop the event.
func (h *Hub) Publish(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode payment event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.send <- msg:
		default:
			h.logger.Warn("dropping payment event for slow subscriber", zap.String("payment_id", ev.PaymentID))
		}
	}
}

// Subscribers returns the number of connected clients
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeWS upgrades the request and streams events until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, 256)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go h.writePump(s)
	go h.readPump(s)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
}

// writePump pumps events from the send channel to the connection
func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.remove(s)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}
