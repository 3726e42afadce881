package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 54 * time.Second
)

// WebSocketHandler 接收分片录音并在结束时统一转写
type WebSocketHandler struct {
	speechSvc   SpeechService
	connections *ConnectionManager
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	maxBytes    int
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(speechSvc SpeechService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		speechSvc:   speechSvc,
		connections: NewConnectionManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
		},
		logger:   logger,
		maxBytes: maxUploadSize,
	}
}

// controlMessage is a text frame sent by the recorder.
type controlMessage struct {
	Type   string `json:"type"` // stop, cancel
	Format string `json:"format,omitempty"`
}

type outgoingMessage struct {
	Type          string `json:"type"`
	RecordingID   string `json:"recordingId,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	Message       string `json:"message,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// recording 单次录音会话状态
type recording struct {
	id     string
	conn   *websocket.Conn
	buffer bytes.Buffer
	chunks int
	writeM sync.Mutex
}

func (rec *recording) send(msg outgoingMessage) error {
	rec.writeM.Lock()
	defer rec.writeM.Unlock()

	msg.RecordingID = rec.id
	msg.Timestamp = time.Now().UnixMilli()
	rec.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return rec.conn.WriteJSON(msg)
}

func (rec *recording) ping() error {
	rec.writeM.Lock()
	defer rec.writeM.Unlock()
	return rec.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	rec := &recording{id: uuid.NewString(), conn: conn}
	h.connections.Add(rec.id, conn)
	defer h.connections.Remove(rec.id)

	logger := h.logger.With(zap.String("recording_id", rec.id))
	logger.Debug("recording upload opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(int64(h.maxBytes))
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	go h.pingLoop(ctx, rec)

	if err := rec.send(outgoingMessage{Type: "connected"}); err != nil {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("recording upload read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msgType {
		case websocket.BinaryMessage:
			if rec.buffer.Len()+len(data) > h.maxBytes {
				rec.send(outgoingMessage{Type: "error", Message: "recording too large"})
				return
			}
			rec.buffer.Write(data)
			rec.chunks++
		case websocket.TextMessage:
			var ctrl controlMessage
			if err := json.Unmarshal(data, &ctrl); err != nil {
				rec.send(outgoingMessage{Type: "error", Message: "invalid control message"})
				continue
			}
			switch ctrl.Type {
			case "stop":
				h.finish(ctx, rec, ctrl.Format, logger)
				return
			case "cancel":
				logger.Debug("recording upload cancelled", zap.Int("chunks", rec.chunks))
				return
			default:
				rec.send(outgoingMessage{Type: "error", Message: "unknown message type: " + ctrl.Type})
			}
		}
	}
}

// finish transcribes the concatenated chunks once and reports the result.
func (h *WebSocketHandler) finish(ctx context.Context, rec *recording, format string, logger *zap.Logger) {
	if rec.buffer.Len() == 0 {
		rec.send(outgoingMessage{Type: "error", Message: "No audio received"})
		return
	}

	format = strings.TrimSpace(format)
	if format == "" {
		format = "wav"
	}

	resp, err := h.speechSvc.TranscribeBuffer(ctx, rec.buffer.Bytes(), format)
	if err != nil {
		logger.Error("recording transcription failed", zap.Int("bytes", rec.buffer.Len()), zap.Error(err))
		rec.send(outgoingMessage{Type: "error", Message: "Error transcribing audio"})
		return
	}

	logger.Info("recording transcribed",
		zap.Int("chunks", rec.chunks),
		zap.Int("bytes", rec.buffer.Len()),
	)
	rec.send(outgoingMessage{Type: "transcription", Transcription: resp.Transcription})
	rec.buffer.Reset()
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, rec *recording) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rec.ping(); err != nil {
				return
			}
		}
	}
}
