package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/eventloop"
	"go.uber.org/zap"
)

type entry struct {
	conn *Conn
}

// Manager tracks live page sessions. Each session gets its own event loop.
type Manager struct {
	loader   PageLoader
	renderer CardRenderer
	cfg      Config
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

func NewManager(loader PageLoader, renderer CardRenderer, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		loader:   loader,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

// Serve runs one upgraded websocket until it closes, then tears the session
// down on its loop and stops the loop.
func (m *Manager) Serve(ctx context.Context, ws *websocket.Conn) {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session", id))

	loop := eventloop.New(logger)
	loop.Start()

	conn := NewConn(ws, logger)
	sess := New(id, loop, conn, m.loader, m.renderer, m.cfg, m.logger)

	m.add(id, &entry{conn: conn})
	defer m.remove(id)

	logger.Info("Session started", zap.String("remote", ws.RemoteAddr().String()))

	conn.Serve(ctx, sess)

	closed := make(chan struct{})
	if loop.Post(func() {
		sess.Close()
		close(closed)
	}) {
		select {
		case <-closed:
		case <-time.After(constants.WebSocketConfig.WriteTimeout):
			logger.Warn("Timeout waiting for session teardown")
		}
	}
	loop.Stop()

	logger.Info("Session ended")
}

func (m *Manager) add(id string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = e
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CloseAll closes every live connection. Serve calls return once their
// sessions are torn down.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.entries))
	for _, e := range m.entries {
		conns = append(conns, e.conn)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	if len(conns) > 0 {
		m.logger.Info("Closed live sessions", zap.Int("count", len(conns)))
	}
}
