// internal/handlers/race_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Bhuwan-Shahi/TypingHub/internal/middleware"
	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

// clientMessage is the shape of every inbound race WebSocket message.
type clientMessage struct {
	Type  string `json:"type"`
	Typed string `json:"typed,omitempty"`
}

// RaceWSHandler upgrades the HTTP connection at /race/ws/{code} to a race
// stream: the participant joins (or reconnects to) the room, receives a full
// snapshot followed by live updates, and submits progress over the same
// connection.
func RaceWSHandler(logger *logrus.Logger, srv *RaceServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/race/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "missing room code (/race/ws/{code})", http.StatusBadRequest)
			return
		}
		code := strings.ToUpper(pathParts[0])
		name := displayName(r.URL.Query().Get("name"))

		// Session must be resolved before the upgrade: Set-Cookie is only
		// possible on the handshake response.
		participantID, err := EnsureSession(w, r)
		if err != nil {
			logger.Warnf("session setup failed for room %s: %v", code, err)
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"race"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "race" {
			c.Close(BadSubprotocolError, "client must speak the race subprotocol")
			return
		}

		room, err := srv.Registry.JoinRoom(code, participantID, name)
		if err != nil {
			switch {
			case errors.Is(err, race.ErrRoomNotFound):
				c.Close(InvalidRoomCodeError, "room does not exist")
			case errors.Is(err, race.ErrRoomFull):
				c.Close(RoomRejectedError, "room is full")
			case errors.Is(err, race.ErrRoomNotJoinable):
				c.Close(RoomRejectedError, "race already started")
			default:
				c.Close(websocket.StatusInternalError, "join failed")
			}
			return
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, code)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub := room.Subscribe(participantID)
		notices := make(chan interface{}, 8)

		go writePump(ctx, c, sub, notices, logger)

		readErr := readPump(ctx, c, srv, room, participantID, notices, logger)

		// Cleanup: detach the stream: the participant stays a room member with
		// their progress intact unless they left explicitly.
		room.Unsubscribe(sub)
		room.MarkDisconnected(participantID)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, code, readErr)
	}
}

// readPump handles inbound messages until the connection closes or the client
// leaves. Malformed messages are dropped with the connection left open.
func readPump(ctx context.Context, c *websocket.Conn, srv *RaceServer, room *race.Room, participantID string, notices chan interface{}, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("room %s: ignoring non-text message from %s", room.Code, participantID)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("room %s: invalid json from %s: %v", room.Code, participantID, err)
			sendNotice(notices, errorEnvelope("invalid JSON format"))
			continue
		}

		switch msg.Type {
		case "progress":
			if _, err := room.ReportProgress(participantID, msg.Typed); err != nil {
				// Stale or out-of-bounds report; tell the client, keep going.
				sendNotice(notices, errorEnvelope("progress update rejected"))
			}

		case "start":
			if err := room.Start(participantID); err != nil {
				sendNotice(notices, errorEnvelope(startErrorMessage(err)))
			}

		case "new_race":
			if _, err := srv.Registry.Reset(ctx, room.Code, participantID); err != nil {
				sendNotice(notices, errorEnvelope(startErrorMessage(err)))
			}

		case "leave":
			_ = srv.Registry.LeaveRoom(room.Code, participantID)
			return nil

		case "ping":
			sendNotice(notices, map[string]string{"type": "pong"})

		default:
			logger.Warnf("room %s: unknown message type %q from %s", room.Code, msg.Type, participantID)
			sendNotice(notices, errorEnvelope("unknown message type: "+msg.Type))
		}
	}
}

// writePump serializes all outbound traffic for one connection: room
// snapshots, error/pong notices and keepalive pings.
func writePump(ctx context.Context, c *websocket.Conn, sub *race.Subscriber, notices chan interface{}, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				// Stream ended: room deleted or participant unsubscribed.
				_ = c.Close(websocket.StatusNormalClosure, "room closed")
				return
			}
			if !writeJSON(ctx, c, snap, logger) {
				return
			}
		case msg := <-notices:
			if !writeJSON(ctx, c, msg, logger) {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, c *websocket.Conn, v interface{}, logger *logrus.Logger) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warnf("failed to marshal outgoing message: %v", err)
		return true
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = c.Write(writeCtx, websocket.MessageText, data)
	cancel()
	if err != nil {
		logger.Warnf("websocket write failed: %v", err)
		return false
	}
	return true
}

// sendNotice queues an out-of-band message without ever blocking the read
// loop; a full notice queue just drops it.
func sendNotice(notices chan interface{}, msg interface{}) {
	select {
	case notices <- msg:
	default:
	}
}

func errorEnvelope(message string) map[string]string {
	return map[string]string{
		"type":    "error",
		"message": message,
	}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, race.ErrNotHost):
		return "only the host can do that"
	case errors.Is(err, race.ErrInsufficientPlayers):
		return "not enough players to start"
	case errors.Is(err, race.ErrRoomNotJoinable):
		return "room is not in the right state"
	case errors.Is(err, race.ErrRoomNotFound):
		return "room not found"
	default:
		return "request failed"
	}
}
