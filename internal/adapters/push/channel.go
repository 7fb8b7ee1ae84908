// Package push is the websocket subscription to the service's change broadcasts.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"eventsync/internal/adapters/wire"
	"eventsync/internal/domain"
)

// Settings tunes the connection. ReadTimeout must be larger than PingInterval since
// pongs are what keep the read deadline moving on a quiet channel.
type Settings struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	BufferSize       int
}

// DefaultSettings returns the settings used by NewChannelWithDefaults.
func DefaultSettings() *Settings {
	pingInterval := 30 * time.Second
	return &Settings{
		HandshakeTimeout: 5 * time.Second,
		PingInterval:     pingInterval,
		ReadTimeout:      2 * pingInterval,
		WriteTimeout:     5 * time.Second,
		BufferSize:       16,
	}
}

var errClosedDuringDial = errors.New("push channel closed while connecting")

// Channel is a single websocket subscription. It holds at most one live connection;
// Open on a channel that is not Disconnected fails with domain.ErrChannelActive.
type Channel struct {
	url      string
	header   http.Header
	settings *Settings
	logger   *slog.Logger
	dialer   *websocket.Dialer

	mu    sync.Mutex
	state domain.ChannelState
	conn  *connection
	// bumped by every Open and Close so a dial that outlived a Close can tell
	gen uint64
}

type connection struct {
	ws        *websocket.Conn
	out       chan domain.Message
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelWithDefaults returns a channel using DefaultSettings.
func NewChannelWithDefaults(url string, header http.Header, logger *slog.Logger) *Channel {
	return NewChannel(url, header, DefaultSettings(), logger)
}

// NewChannel returns a disconnected channel for url. header is sent on every handshake.
func NewChannel(url string, header http.Header, settings *Settings, logger *slog.Logger) *Channel {
	if settings == nil {
		settings = DefaultSettings()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Channel{
		url:      url,
		header:   header.Clone(),
		settings: settings,
		logger:   logger,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: settings.HandshakeTimeout,
		},
	}
}

var _ domain.PushChannel = (*Channel)(nil)

// State returns the current connection state.
func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the service and returns the message stream. The stream is closed when the
// connection ends for any reason.
func (c *Channel) Open(ctx context.Context) (<-chan domain.Message, error) {
	c.mu.Lock()
	if c.state != domain.ChannelDisconnected {
		c.mu.Unlock()
		return nil, domain.ErrChannelActive
	}
	c.state = domain.ChannelConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.settings.HandshakeTimeout)
	ws, resp, err := c.dialer.DialContext(dialCtx, c.url, c.header)
	cancel()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.state = domain.ChannelDisconnected
		}
		c.mu.Unlock()
		if resp != nil {
			return nil, fmt.Errorf("dial push channel: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	conn := &connection{
		ws:      ws,
		out:     make(chan domain.Message, c.settings.BufferSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	if c.gen != gen || ctx.Err() != nil {
		if c.gen == gen {
			c.state = domain.ChannelDisconnected
		}
		c.mu.Unlock()
		ws.Close()
		return nil, errClosedDuringDial
	}
	c.conn = conn
	c.state = domain.ChannelConnected
	c.mu.Unlock()

	c.logger.Info("push channel connected", "url", c.url)
	go c.run(conn)
	return conn.out, nil
}

// Close tears down the live connection and returns once its goroutines have exited and
// the message stream is closed. Calling Close on a disconnected channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.gen++
	if conn == nil {
		// cancels a dial in flight, if any
		c.state = domain.ChannelDisconnected
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn.shutdown(c.settings.WriteTimeout)
	<-conn.done

	c.mu.Lock()
	c.state = domain.ChannelDisconnected
	c.mu.Unlock()
	c.logger.Info("push channel closed", "url", c.url)
	return nil
}

// shutdown sends a close frame and closes the socket, unblocking the reader.
func (conn *connection) shutdown(writeTimeout time.Duration) {
	conn.closeOnce.Do(func() {
		close(conn.closing)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		conn.ws.Close()
	})
}

func (conn *connection) isClosing() bool {
	select {
	case <-conn.closing:
		return true
	default:
		return false
	}
}

func (c *Channel) run(conn *connection) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.ping(conn)
	}()

	defer func() {
		conn.shutdown(c.settings.WriteTimeout)
		wg.Wait()
		close(conn.out)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.state = domain.ChannelDisconnected
		}
		c.mu.Unlock()
		close(conn.done)
	}()

	ws := conn.ws
	extend := func() error {
		return ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	}
	_ = extend()
	ws.SetPongHandler(func(string) error { return extend() })

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if !conn.isClosing() {
				c.logger.Warn("push channel read failed", "err", err)
			}
			return
		}
		_ = extend()

		msg, err := wire.DecodeMessage(frame)
		if err != nil {
			if errors.Is(err, wire.ErrUnknownType) {
				c.logger.Debug("ignoring push message", "err", err)
			} else {
				c.logger.Warn("dropping malformed push message", "err", err)
			}
			continue
		}

		if conn.isClosing() {
			return
		}
		select {
		case <-conn.closing:
			return
		case conn.out <- msg:
		}
	}
}

func (c *Channel) ping(conn *connection) {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-conn.closing:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.settings.WriteTimeout)
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if !conn.isClosing() {
					c.logger.Warn("push channel ping failed", "err", err)
				}
				conn.shutdown(c.settings.WriteTimeout)
				return
			}
		}
	}
}
