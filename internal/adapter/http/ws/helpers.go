package wshandler

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	authWait   = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 5 * time.Second
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// rejectRaw answers on a connection that never made it into the hub.
func rejectRaw(conn *websocket.Conn, message string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(map[string]any{
		"type":  "auth_error",
		"error": message,
	})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}
