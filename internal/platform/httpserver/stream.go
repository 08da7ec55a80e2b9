package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"bazaar/contexts/trading/listing-engine/ports"
)

// EventStream fans published listing events out to websocket clients.
// It subscribes to the bus once and keeps a connection registry; slow
// clients are disconnected rather than allowed to stall the stream.
type EventStream struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan ports.EventEnvelope
}

const streamClientBuffer = 32

func NewEventStream(logger *slog.Logger) *EventStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]chan ports.EventEnvelope),
	}
}

// Attach subscribes the stream to a bus topic. Call once during startup.
func (s *EventStream) Attach(ctx context.Context, subscriber ports.EventSubscriber, topic string) error {
	return subscriber.Subscribe(ctx, topic, "event-stream", func(_ context.Context, event ports.EventEnvelope) error {
		s.broadcast(event)
		return nil
	})
}

func (s *EventStream) broadcast(event ports.EventEnvelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn, ch := range s.clients {
		select {
		case ch <- event:
		default:
			s.logger.Warn("dropping slow stream client",
				"event", "event_stream_client_dropped",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"remote_addr", conn.RemoteAddr().String(),
			)
			delete(s.clients, conn)
			close(ch)
			_ = conn.Close()
		}
	}
}

// Handle upgrades the request to a websocket and streams listing events
// until the client disconnects.
func (s *EventStream) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			"event", "event_stream_upgrade_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		return
	}

	ch := make(chan ports.EventEnvelope, streamClientBuffer)
	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	s.logger.Info("stream client connected",
		"event", "event_stream_client_connected",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"remote_addr", conn.RemoteAddr().String(),
	)

	// Reader goroutine detects disconnects; inbound frames are discarded.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			s.detach(conn)
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				s.detach(conn)
				return
			}
		}
	}
}

func (s *EventStream) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if ch, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		close(ch)
	}
	s.mu.Unlock()
	_ = conn.Close()
}
