package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"go.uber.org/zap"
)

var (
	errConnClosed     = fmt.Errorf("connection closed")
	errSendBufferFull = fmt.Errorf("send buffer full")
)

// Conn is the server side of a page's websocket. One goroutine reads and
// dispatches browser messages; another writes queued messages and pings.
type Conn struct {
	ws       *websocket.Conn
	send     chan []byte
	state    ConnState
	stateMu  sync.RWMutex
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	writerWg sync.WaitGroup
}

func NewConn(ws *websocket.Conn, logger *zap.Logger) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan []byte, constants.WebSocketConfig.SendBuffer),
		state:  ConnStateOpen,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Send queues msg for the writer. It never blocks: a closed connection or a
// full buffer is reported as an error.
func (c *Conn) Send(msg OutboundMessage) error {
	if c.State() != ConnStateOpen {
		return errConnClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.stopCh:
		return errConnClosed
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("WebSocket send buffer full, dropping message", zap.String("type", msg.Type))
		return errSendBufferFull
	}
}

// Serve runs the connection until the browser goes away, ctx ends, or Close
// is called. It returns after both pumps have stopped.
func (c *Conn) Serve(ctx context.Context, s *Session) {
	defer close(c.doneCh)

	c.writerWg.Add(1)
	go c.writePump()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.stopCh:
		}
	}()

	c.readPump(ctx, s)
	c.Close()
}

func (c *Conn) readPump(ctx context.Context, s *Session) {
	defer c.logger.Debug("WebSocket reader stopped")

	c.ws.SetReadLimit(constants.WebSocketConfig.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			dataStr := string(data)
			if len(dataStr) > 200 {
				dataStr = dataStr[:200]
			}
			c.logger.Warn("Failed to parse message",
				zap.Error(err),
				zap.String("data", dataStr),
			)
			continue
		}

		s.Dispatch(ctx, msg)
	}
}

func (c *Conn) writePump() {
	defer c.writerWg.Done()

	ticker := time.NewTicker(constants.WebSocketConfig.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				go c.Close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(constants.WebSocketConfig.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("WebSocket ping failed", zap.Error(err))
				go c.Close()
				return
			}
		case <-c.stopCh:
			deadline := time.Now().Add(time.Second)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

// Close stops both pumps and closes the socket. It is safe to call more than
// once and from any goroutine.
func (c *Conn) Close() {
	c.stopOnce.Do(func() {
		c.setState(ConnStateClosing)
		close(c.stopCh)

		done := make(chan struct{})
		go func() {
			c.writerWg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			c.logger.Warn("Timeout waiting for writer to stop")
		}

		if err := c.ws.Close(); err != nil {
			c.logger.Debug("Failed to close WebSocket", zap.Error(err))
		}
		c.setState(ConnStateClosed)
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.doneCh
}

func (c *Conn) State() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Conn) setState(newState ConnState) {
	c.stateMu.Lock()
	oldState := c.state
	c.state = newState
	c.stateMu.Unlock()

	if oldState != newState {
		c.logger.Debug("WebSocket state changed",
			zap.String("from", oldState.String()),
			zap.String("to", newState.String()),
		)
	}
}
