package sink

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atcsim/atcsim/internal/monitor"
)

// upgrader is shared across all dashboard connections; origin checking is
// left permissive since the dashboard is a same-process/localhost
// collaborator, not a public endpoint (spec §1 non-goal: network
// operation over an untrusted boundary).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeTimeout bounds how long a single dashboard broadcast write may
// block; a slow or dead client is dropped rather than stalling the
// monitoring task.
const writeTimeout = 2 * time.Second

// avnMessage is the JSON shape pushed to connected dashboard clients.
type avnMessage struct {
	ID          int     `json:"id"`
	Airline     string  `json:"airline"`
	Flight      string  `json:"flight"`
	Kind        string  `json:"kind"`
	Speed       float64 `json:"speed"`
	PermittedMin float64 `json:"permitted_min"`
	PermittedMax float64 `json:"permitted_max"`
	Total       float64 `json:"total"`
	Status      string  `json:"status"`
}

// WebSocketSink fans AVNs out to every currently-connected dashboard
// client as JSON text frames. The 2-D visualizer itself is out of scope
// (spec §1); this only ships the data feed it would consume.
type WebSocketSink struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

// NewWebSocketSink constructs an empty WebSocketSink.
func NewWebSocketSink(logger *slog.Logger) *WebSocketSink {
	return &WebSocketSink{clients: make(map[*websocket.Conn]struct{}), logger: logger}
}

// HandleUpgrade upgrades an incoming HTTP request to a websocket
// connection and registers it as a broadcast target. Intended to be
// mounted at a dashboard endpoint by the caller's HTTP server.
func (s *WebSocketSink) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	go s.drainUntilClosed(conn)
}

// drainUntilClosed discards inbound messages (the dashboard is a
// read-only feed) until the client disconnects, then deregisters it.
func (s *WebSocketSink) drainUntilClosed(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// PushAVN broadcasts avn as a JSON frame to every connected client.
func (s *WebSocketSink) PushAVN(avn *monitor.AVN) error {
	payload, err := json.Marshal(avnMessage{
		ID:           avn.ID,
		Airline:      avn.AirlineName,
		Flight:       avn.FlightID,
		Kind:         avn.Kind.String(),
		Speed:        avn.RecordedSpeed,
		PermittedMin: avn.PermittedMin,
		PermittedMax: avn.PermittedMax,
		Total:        avn.Total,
		Status:       avn.Status.String(),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Debug("dropping unresponsive dashboard client", "error", err)
			delete(s.clients, conn)
			conn.Close()
		}
	}
	return nil
}
