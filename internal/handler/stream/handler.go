package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/voice-assistant/internal/handler/chat"
	"github.com/zhouzirui/voice-assistant/pkg/utils"
)

// Handler streams send-message progress via Server-Sent Events
type Handler struct {
	assistantSvc chatHandler.AssistantService
	logger       *zap.Logger
}

// New creates a new stream handler
func New(assistantSvc chatHandler.AssistantService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		assistantSvc: assistantSvc,
		logger:       logger,
	}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/send-message/stream", h.handleSendMessageStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Code      int    `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
}

func (h *Handler) handleSendMessageStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, ok := chatHandler.DecodeSendRequest(w, r)
	if !ok {
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	send := func(resp StreamResponse) {
		resp.SessionID = req.ThreadID
		if err := utils.SendSSEEvent(w, flusher, resp.Event, resp); err != nil {
			h.logger.Debug("sse write failed", zap.String("event", resp.Event), zap.Error(err))
		}
	}

	send(StreamResponse{Event: "start"})

	text, err := h.assistantSvc.SendMessage(r.Context(), req, func(status string) {
		send(StreamResponse{Event: "status", Status: status})
	})
	if err != nil {
		status, message := chatHandler.ErrorStatus(err)
		h.logger.Error("streamed send failed",
			zap.String("thread_id", req.ThreadID),
			zap.Int("status", status),
			zap.Error(err),
		)
		send(StreamResponse{Event: "error", Code: status, Error: message, Finished: true})
		return
	}

	send(StreamResponse{Event: "message", Message: text})
	send(StreamResponse{Event: "end", Finished: true})
}
