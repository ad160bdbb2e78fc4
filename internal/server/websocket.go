package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send control frames.
	maxMessageSize = 512

	// Close reasons must fit in a control frame
	maxCloseReason = 120
)

// handleWebSocket streams frames as binary messages until the client goes
// away, acquisition fails or the server shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	interval := s.config.StreamInterval
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			http.Error(w, "interval_ms must be a non-negative integer", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := r.RemoteAddr
	defer func() { _ = conn.Close() }()

	if !s.track(remoteAddr, conn) {
		closeWith(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer s.untrack(remoteAddr)

	logging.LogConnection(remoteAddr, "stream_opened")
	defer logging.LogConnection(remoteAddr, "stream_closed")

	done := make(chan struct{})
	go readPump(conn, remoteAddr, done)

	frames, err := s.writePump(r, conn, remoteAddr, interval, done)
	if err != nil {
		logging.Warn("Frame stream ended with error",
			zap.String("remote_addr", remoteAddr),
			zap.Uint32("frames_sent", frames),
			zap.Error(err),
		)
		return
	}
	logging.Info("Frame stream ended",
		zap.String("remote_addr", remoteAddr),
		zap.Uint32("frames_sent", frames),
	)
}

// writePump grabs and sends frames, pinging the client between them.
// It returns the number of frames sent.
func (s *Server) writePump(r *http.Request, conn *websocket.Conn, remoteAddr string, interval time.Duration, done <-chan struct{}) (uint32, error) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var seq uint32
	for {
		select {
		case <-done:
			return seq, nil
		case <-s.quit:
			closeWith(conn, websocket.CloseGoingAway, "server shutting down")
			return seq, nil
		default:
		}

		frames, err := s.grab(r.Context())
		if err != nil {
			closeWith(conn, websocket.CloseInternalServerErr, camera.GetShortErrorMessage(err))
			return seq, err
		}

		msg, err := EncodeFrameMessage(FrameHeader{
			Width:    frames.Width,
			Height:   frames.Height,
			Sequence: seq,
		}, frames.Frame(0))
		if err != nil {
			closeWith(conn, websocket.CloseInternalServerErr, err.Error())
			return seq, err
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			select {
			case <-done:
				return seq, nil
			default:
			}
			return seq, err
		}
		logging.LogWebSocketMessage(remoteAddr, "sent", websocket.BinaryMessage, len(msg))
		seq++

		wait := time.NewTimer(interval)
	waiting:
		for {
			select {
			case <-done:
				wait.Stop()
				return seq, nil
			case <-s.quit:
				wait.Stop()
				closeWith(conn, websocket.CloseGoingAway, "server shutting down")
				return seq, nil
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					wait.Stop()
					return seq, err
				}
			case <-wait.C:
				break waiting
			}
		}
	}
}

// readPump consumes client messages so control frames are processed and
// closes done when the connection ends.
func readPump(conn *websocket.Conn, remoteAddr string, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Stream connection lost",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(remoteAddr, "received", messageType, len(msg))
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
