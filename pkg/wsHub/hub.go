package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps one active websocket connection per entity.
type ConnectionHub struct {
	clients map[string]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[string]*Conn),
		l:       l,
	}
}

// Add registers a connection. An existing connection of the same entity is
// closed and replaced.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	existing, ok := h.clients[newConn.entityID]
	h.clients[newConn.entityID] = newConn
	h.mu.Unlock()

	if ok {
		ctx := wrap.WithAction(context.Background(), "ws_connection_replace")
		h.l.Warn(ctx, "replacing existing connection", "entity_id", existing.entityID)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "entity_id", existing.entityID, "err", err.Error())
		}
	}
	return nil
}

// Remove closes conn and drops it from the hub if it is still the active
// connection of its entity.
func (h *ConnectionHub) Remove(conn *Conn) {
	if conn == nil {
		return
	}

	h.mu.Lock()
	if current, ok := h.clients[conn.entityID]; ok && current == conn {
		delete(h.clients, conn.entityID)
	}
	h.mu.Unlock()

	_ = conn.Close()
}

// Delete closes and removes the connection of entityID.
func (h *ConnectionHub) Delete(entityID string) error {
	h.mu.Lock()
	conn, ok := h.clients[entityID]
	delete(h.clients, entityID)
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	if err := conn.Close(); err != nil {
		h.l.Warn(wrap.WithAction(context.Background(), "ws_connection_delete"), "failed to close conn", "entity_id", entityID, "err", err.Error())
	}
	return nil
}

// SendTo sends msg to entity id. Returns ErrConnIsNotFound when the entity
// has no open connection.
func (h *ConnectionHub) SendTo(id string, msg any) error {
	conn, err := h.GetConn(id)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

// GetConn returns the connection of id.
func (h *ConnectionHub) GetConn(id string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}

// Len returns the number of open connections.
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every connection.
func (h *ConnectionHub) Close() {
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.clients = make(map[string]*Conn)
	h.mu.Unlock()

	for _, conn := range clients {
		_ = conn.Close()
	}

	h.l.Info(wrap.WithAction(context.Background(), "hub_close"), "all websocket connections closed", "count", len(clients))
}
