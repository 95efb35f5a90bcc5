// Package feed keeps a live WebSocket subscription to the calibration feed.
//
// A Manager owns exactly one connection at a time. It reconnects with
// exponential backoff when the connection drops and reports every lifecycle
// event through the Hooks it was created with. Each view creates its own
// Manager and closes it when done.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a control message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to the peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the peer.
	maxMessageSize = 4 << 20
)

// Errors returned by Run.
var (
	ErrClosed  = errors.New("feed manager closed")
	ErrRunning = errors.New("feed manager already running")
)

// Hooks are the lifecycle callbacks of a Manager. Nil hooks are skipped.
// Hooks run on the reading goroutine, so a slow hook delays the next message.
type Hooks struct {
	OnOpen    func(connID string)
	OnMessage func(connID string, data []byte)
	OnError   func(connID string, err error)
	OnClose   func(connID string)
}

// Manager subscribes to one WebSocket endpoint.
type Manager struct {
	url        string
	hooks      Hooks
	dialer     *websocket.Dialer
	header     http.Header
	logger     *slog.Logger
	maxTries   uint
	newBackOff func() backoff.BackOff
	pongWait   time.Duration
	pingPeriod time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	connID  string
	running bool
	closed  bool
	done    chan struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(m *Manager) { m.header = h.Clone() }
}

// WithLogger sets the logger used for reconnect diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMaxTries bounds the dial attempts of every reconnect. Zero retries until stopped.
func WithMaxTries(n uint) Option {
	return func(m *Manager) { m.maxTries = n }
}

// WithBackOff sets the factory of the reconnect policy. A fresh policy is used per outage.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newBackOff = fn
		}
	}
}

// WithKeepAlive overrides the pong deadline. Pings go out at 90% of it.
func WithKeepAlive(pong time.Duration) Option {
	return func(m *Manager) {
		if pong > 0 {
			m.pongWait = pong
			m.pingPeriod = (pong * 9) / 10
		}
	}
}

// NewManager creates a Manager for url. Nothing is dialed until Run.
func NewManager(url string, hooks Hooks, opts ...Option) *Manager {
	m := &Manager{
		url:        url,
		hooks:      hooks,
		dialer:     &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: 15 * time.Second},
		logger:     slog.Default(),
		newBackOff: defaultBackOff,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 30 * time.Second
	return policy
}

// ConnID returns the ID of the live connection, or "" when disconnected.
func (m *Manager) ConnID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connID
}

// Run connects and delivers messages until ctx is done or Close is called,
// in which case it returns nil. It returns an error when a reconnect gives up.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.running:
		m.mu.Unlock()
		return ErrRunning
	}
	m.running = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unblock the reader on shutdown.
	go func() {
		select {
		case <-m.done:
			cancel()
		case <-ctx.Done():
		}
		m.mu.Lock()
		m.dropConnLocked()
		m.mu.Unlock()
	}()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	for {
		conn, err := m.connect(ctx)
		if err != nil {
			if m.stopped(ctx) {
				return nil
			}
			return fmt.Errorf("failed to connect to %s: %w", m.url, err)
		}

		id := uuid.NewString()
		opened, err := m.serve(ctx, conn, id)
		if !opened {
			return nil
		}
		if err != nil && !m.stopped(ctx) && m.hooks.OnError != nil {
			m.hooks.OnError(id, err)
		}
		if m.hooks.OnClose != nil {
			m.hooks.OnClose(id)
		}
		if m.stopped(ctx) {
			return nil
		}
		m.logger.Info("feed connection lost, reconnecting", "conn_id", id, "url", m.url)
	}
}

// connect dials with backoff. Handshake rejections with a 4xx status are not retried.
func (m *Manager) connect(ctx context.Context) (*websocket.Conn, error) {
	operation := func() (*websocket.Conn, error) {
		conn, resp, err := m.dialer.DialContext(ctx, m.url, m.header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, backoff.Permanent(fmt.Errorf("%w (status %s)", err, resp.Status))
			}
			m.logger.Warn("feed dial failed", "url", m.url, "error", err)
			return nil, err
		}
		return conn, nil
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(m.newBackOff())}
	if m.maxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(m.maxTries))
	} else {
		opts = append(opts, backoff.WithMaxElapsedTime(0))
	}
	return backoff.Retry(ctx, operation, opts...)
}

// serve reads messages from conn until it fails. A normal close by the peer returns nil.
// It reports false when the manager was closed before the connection could be used.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn, id string) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return false, nil
	}
	m.conn, m.connID = conn, id
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.conn == conn {
			m.dropConnLocked()
		}
		m.mu.Unlock()
	}()

	if m.hooks.OnOpen != nil {
		m.hooks.OnOpen(id)
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(m.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go m.pinger(conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if m.stopped(ctx) {
				return true, nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, err
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return true, nil
			}
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(m.pongWait))
		if m.hooks.OnMessage != nil {
			m.hooks.OnMessage(id, data)
		}
	}
}

// pinger keeps the connection alive until stop is closed or a ping fails.
func (m *Manager) pinger(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Close stops Run and releases the connection. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.dropConnLocked()
	return nil
}

// stopped reports whether Run was cancelled or the manager closed.
func (m *Manager) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// dropConnLocked sends a close frame and closes the live connection. m.mu must be held.
func (m *Manager) dropConnLocked() {
	if m.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = m.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = m.conn.Close()
	m.conn, m.connID = nil, ""
}
