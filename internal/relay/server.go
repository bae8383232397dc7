// Package relay is a small WebSocket signaling relay: every text message is
// forwarded to all other connections, and a departing connection is
// announced to the rest with a disconnect message.
package relay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thetapreview_relay_connections",
		Help: "Open relay WebSocket connections",
	})
	forwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thetapreview_relay_messages_forwarded_total",
		Help: "Messages delivered to relay peers",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thetapreview_relay_messages_dropped_total",
		Help: "Messages dropped because a peer's send buffer was full",
	})
)

var disconnectMessage, _ = json.Marshal(domain.SignalingMessage{Type: domain.SignalDisconnect})

type conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
}

// Server is an http.Handler that upgrades every request to a relay connection.
type Server struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[string]*conn
	closed bool

	wg sync.WaitGroup
}

// New creates an empty relay.
func New() *Server {
	return &Server{
		logger: xlog.WithComponent("relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Loopback relay between the camera and its viewer, no browser origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*conn),
	}
}

// Count reports the number of open connections.
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	c := &conn{id: uuid.NewString(), ws: ws, send: make(chan []byte, sendBuffer)}
	if !s.add(c) {
		ws.Close()
		return
	}
	s.logger.Info().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("peer joined")

	s.wg.Add(1)
	go s.writePump(c)
	s.readPump(c)
}

// Close drops every connection and waits for their pumps to finish. New
// connections are refused afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	for _, c := range s.conns {
		c.ws.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) add(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c.id] = c
	s.wg.Add(1) // readPump
	connectionsGauge.Inc()
	return true
}

func (s *Server) remove(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c.id]; !ok {
		return
	}
	delete(s.conns, c.id)
	close(c.send)
	connectionsGauge.Dec()
}

// broadcast queues data for every connection except the one with id from.
func (s *Server) broadcast(data []byte, from string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, c := range s.conns {
		if id == from {
			continue
		}
		select {
		case c.send <- data:
			forwardedTotal.Inc()
		default:
			droppedTotal.Inc()
			s.logger.Warn().Str("conn", id).Msg("send buffer full, dropping message")
		}
	}
}

func (s *Server) readPump(c *conn) {
	defer s.wg.Done()
	defer func() {
		s.remove(c)
		c.ws.Close()
		s.broadcast(disconnectMessage, c.id)
		s.logger.Info().Str("conn", c.id).Msg("peer left")
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("conn", c.id).Msg("read failed")
			}
			return
		}
		if kind != websocket.TextMessage {
			s.logger.Warn().Str("conn", c.id).Msg("ignoring binary message")
			continue
		}
		s.logger.Debug().Str("conn", c.id).Int("bytes", len(data)).Msg("forward")
		s.broadcast(data, c.id)
	}
}

func (s *Server) writePump(c *conn) {
	defer s.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug().Err(err).Str("conn", c.id).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
