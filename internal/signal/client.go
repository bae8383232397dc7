package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultPingInterval is used when NewClient is given a non-positive interval.
const DefaultPingInterval = 30 * time.Second

const writeWait = 5 * time.Second

// Client manages the WebSocket connection to the signaling relay. There is
// no reconnect: once the connection drops, Done is closed for good.
type Client struct {
	url          string
	handler      domain.Handler
	pingInterval time.Duration
	logger       zerolog.Logger

	conn *websocket.Conn

	mu        sync.Mutex // guards writes on conn
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a signaling client for the relay at url.
func NewClient(url string, handler domain.Handler, pingInterval time.Duration) *Client {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &Client{
		url:          url,
		handler:      handler,
		pingInterval: pingInterval,
		logger:       xlog.WithComponent("signal"),
		closed:       make(chan struct{}),
	}
}

// Connect dials the relay and starts the read and ping loops.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info().Str("url", c.url).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w: %w", domain.ErrTransport, err)
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Close shuts down the WebSocket connection and waits for the loops to exit.
// It must not be called from a Handler callback.
func (c *Client) Close() {
	c.shutdown()
	c.wg.Wait()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// SendSDP sends a full session description as an offer or answer.
func (c *Client) SendSDP(sdp domain.SDPPayload) error {
	return c.sendJSON(domain.SignalingMessage{Type: domain.SignalType(sdp.Type), SDP: sdp.SDP})
}

func (c *Client) sendJSON(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return fmt.Errorf("send: %w: connection closed", domain.ErrTransport)
	default:
	}
	if c.conn == nil {
		return fmt.Errorf("send: %w: not connected", domain.ErrTransport)
	}

	c.logger.Debug().RawJSON("message", data).Msg(">>>")
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w: %w", domain.ErrTransport, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.shutdown()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.logger.Error().Err(fmt.Errorf("%w: %w", domain.ErrTransport, err)).Msg("read failed")
			}
			return
		}

		c.logger.Debug().Int("bytes", len(data)).Msg("<<<")

		msg, err := parse(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping message")
			continue
		}
		c.dispatch(msg)
	}
}

func parse(data []byte) (domain.SignalingMessage, error) {
	var msg domain.SignalingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", domain.ErrSignalingProtocol, err)
	}
	switch msg.Type {
	case domain.SignalOffer, domain.SignalAnswer:
		if msg.SDP == "" {
			return msg, fmt.Errorf("%w: %s without sdp", domain.ErrSignalingProtocol, msg.Type)
		}
	case domain.SignalDisconnect:
	default:
		return msg, fmt.Errorf("%w: unknown type %q", domain.ErrSignalingProtocol, msg.Type)
	}
	return msg, nil
}

func (c *Client) dispatch(msg domain.SignalingMessage) {
	switch msg.Type {
	case domain.SignalOffer:
		c.logger.Info().Msg("received offer")
		c.handler.OnOffer(msg.Payload())
	case domain.SignalAnswer:
		c.logger.Info().Msg("received answer")
		c.handler.OnAnswer(msg.Payload())
	case domain.SignalDisconnect:
		c.logger.Info().Msg("received disconnect")
		c.handler.OnDisconnect()
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					select {
					case <-c.closed:
					default:
						c.logger.Warn().Err(err).Msg("ping failed")
					}
				}
				return
			}
		}
	}
}

var _ domain.Signaler = (*Client)(nil)
