package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var ErrConnClosed = errors.New("connection closed")

// Conn is a websocket connection owned by one entity (a rider, a driver).
// Writes are serialized; reads happen only in Listen.
type Conn struct {
	conn     *websocket.Conn
	entityID string
	doneCtx  context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
}

func NewConn(ctx context.Context, entityID string, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	return &Conn{
		conn:     conn,
		entityID: entityID,
		doneCtx:  ctx,
		cancel:   cancel,
	}
}

func (c *Conn) EntityID() string {
	return c.entityID
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCtx.Done()
}

func (c *Conn) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ping()
}

func (c *Conn) ping() error {
	if c.conn == nil {
		return errors.New("connection is nil")
	}
	if c.doneCtx.Err() != nil {
		return ErrConnClosed
	}
	if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Send writes msg as a JSON text frame.
func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.doneCtx.Err() != nil {
		return ErrConnClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return c.conn.WriteJSON(msg)
}

// Listen reads JSON messages until the peer goes away or the connection is
// closed. Client messages are passed to handler; a handler error ends the loop.
func (c *Conn) Listen(handler func(msg map[string]any) error) error {
	for {
		if c.doneCtx.Err() != nil {
			return ErrConnClosed
		}
		var msg map[string]any
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handler(msg); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doneCtx.Err() != nil {
		return nil
	}
	c.cancel()

	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return c.conn.Close()
	}
	return nil
}
