package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/ptrack/internal/live"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the display app is served from its own origin
	},
}

const writeWait = time.Second

// handleWebSocket pushes the latest snapshot to the client at PushRate and
// queues {"command": ...} messages it sends back.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.log.Info("display client connected", "remote", r.RemoteAddr)
	defer s.log.Info("display client disconnected", "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go s.readCommands(conn, closed)

	ticker := time.NewTicker(time.Second / time.Duration(s.config.PushRate))
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.config.Hub.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-ticker.C:
			snap, ok := s.config.Hub.Latest()
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				s.log.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// readCommands reads client messages until the connection fails.
func (s *Server) readCommands(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read failed", "error", err)
			}
			return
		}
		if s.config.Commands == nil {
			continue
		}

		var msg commandRequest
		if err := json.Unmarshal(data, &msg); err != nil || msg.Command == "" {
			s.log.Warn("ignoring websocket message", "message", string(data))
			continue
		}
		if _, err := s.enqueue(msg.Command); err != nil {
			if errors.Is(err, live.ErrQueueFull) {
				s.log.Warn("command dropped", "command", msg.Command)
			} else {
				s.log.Warn("ignoring websocket command", "command", msg.Command, "error", err)
			}
		}
	}
}
