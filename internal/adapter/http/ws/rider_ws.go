package wshandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type AuthService interface {
	RoleCheck(ctx context.Context, token string) (*models.User, error)
}

// RiderWsHandler opens the notification socket of a rider. Ride events reach
// the socket through the hub; the socket itself only carries keepalives.
type RiderWsHandler struct {
	connections *ws.ConnectionHub
	auth        AuthService
	service     string
	l           logger.Logger
}

func NewRiderWsHandler(connections *ws.ConnectionHub, auth AuthService, service string, l logger.Logger) *RiderWsHandler {
	return &RiderWsHandler{
		connections: connections,
		auth:        auth,
		service:     service,
		l:           l,
	}
}

// HandleWebSocket godoc
// @Summary      Rider notification socket
// @Description  Upgrades to a websocket. Unless the upgrade request carried a bearer token, the first frame must be {"type":"auth","token":"Bearer <jwt>"}. Ride events of the rider are pushed as {"type":"<event kind>","data":{...}}.
// @Tags         Rides
// @Param        passenger_id  path  string  true  "rider id"
// @Router       /ws/passengers/{passenger_id} [get]
func (h *RiderWsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRiderWSOpen)
	passengerID := r.PathValue("passenger_id")

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	user, err := h.authenticate(ctx, raw)
	if err != nil {
		h.l.Warn(ctx, "rider websocket authentication failed", "error", err.Error())
		rejectRaw(raw, err.Error())
		_ = raw.Close()
		return
	}
	if user.Role != types.RolePassenger || user.ID != passengerID {
		h.l.Warn(wrap.WithUserID(ctx, user.ID), "rider websocket rejected", "passenger_id", passengerID, "role", user.Role)
		rejectRaw(raw, "forbidden: not your notification channel")
		_ = raw.Close()
		return
	}
	ctx = wrap.WithUserID(ctx, passengerID)

	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := ws.NewConn(ctx, passengerID, raw)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register rider connection", err)
		_ = conn.Close()
		return
	}
	metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Inc()
	defer func() {
		h.connections.Remove(conn)
		metrics.WebSocketConnectionsGauge.WithLabelValues(h.service).Dec()
		h.l.Info(wrap.WithAction(ctx, types.ActionRiderWSClose), "rider websocket closed")
	}()

	if err := conn.Send(map[string]any{
		"type":         "auth_success",
		"passenger_id": passengerID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		h.l.Warn(ctx, "failed to confirm rider websocket", "error", err.Error())
		return
	}
	h.l.Info(ctx, "rider websocket connected")

	go keepAlive(conn)

	err = conn.Listen(func(msg map[string]any) error {
		h.l.Debug(ctx, "rider message ignored", "type", msg["type"])
		return nil
	})
	if err != nil && !errors.Is(err, ws.ErrConnClosed) && !isNormalClose(err) {
		h.l.Warn(ctx, "rider websocket read failed", "error", err.Error())
	}
}

// authenticate prefers the user resolved from the upgrade request headers and
// falls back to an auth frame.
func (h *RiderWsHandler) authenticate(ctx context.Context, raw *websocket.Conn) (*models.User, error) {
	if user := models.UserFromContext(ctx); user != nil && !user.IsAnonymous() {
		return user, nil
	}

	_ = raw.SetReadDeadline(time.Now().Add(authWait))
	var msg authMessage
	if err := raw.ReadJSON(&msg); err != nil {
		return nil, errors.New("authentication timeout: send auth message first")
	}
	if msg.Type != "auth" {
		return nil, errors.New("first message must be of type auth")
	}

	token, err := middleware.ExtractBearerToken(msg.Token)
	if err != nil {
		return nil, err
	}
	user, err := h.auth.RoleCheck(ctx, token)
	if err != nil || user == nil {
		return nil, errors.New("invalid credentials")
	}
	return user, nil
}

func keepAlive(conn *ws.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			return
		case <-ticker.C:
			if err := conn.Health(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(errors.Unwrap(err), websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
