package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	assistantService "github.com/zhouzirui/voice-assistant/internal/service/assistant"
	"github.com/zhouzirui/voice-assistant/pkg/utils"
)

// AssistantService 抽象助手业务，便于测试与替换实现
type AssistantService interface {
	CreateSession(ctx context.Context) (string, error)
	InitAssistant(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, req assistantService.SendRequest, onStatus assistantService.StatusFunc) (string, error)
}

// Handler 会话与消息的HTTP处理器
type Handler struct {
	assistantSvc AssistantService
	logger       *zap.Logger
}

// New 创建聊天处理器
func New(assistantSvc AssistantService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		assistantSvc: assistantSvc,
		logger:       logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/create-session", h.handleCreateSession)
	r.Post("/init-assistant", h.handleInitAssistant)
	r.Post("/send-message", h.handleSendMessage)
}

// handleCreateSession 创建远端线程
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	threadID, err := h.assistantSvc.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create thread")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": threadID})
}

// handleInitAssistant 创建远端助手
func (h *Handler) handleInitAssistant(w http.ResponseWriter, r *http.Request) {
	assistantID, err := h.assistantSvc.InitAssistant(r.Context())
	if err != nil {
		h.logger.Error("init assistant failed", zap.Error(err))
		utils.RespondErrorDetails(w, http.StatusInternalServerError, "Failed to initialize assistant", err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"assistantId": assistantID})
}

// handleSendMessage 发送用户消息并等待助手回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := DecodeSendRequest(w, r)
	if !ok {
		return
	}

	text, err := h.assistantSvc.SendMessage(r.Context(), req, nil)
	if err != nil {
		status, message := ErrorStatus(err)
		h.logger.Error("send message failed",
			zap.String("thread_id", req.ThreadID),
			zap.Int("status", status),
			zap.Error(err),
		)
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": text})
}

// DecodeSendRequest parses and validates a send-message body. On failure it
// writes a 400 and returns false.
func DecodeSendRequest(w http.ResponseWriter, r *http.Request) (assistantService.SendRequest, bool) {
	var req assistantService.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := req.Validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// ErrorStatus maps a send-message failure to an HTTP status and message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, assistantService.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, assistantService.ErrNoTextContent):
		return http.StatusBadRequest, "Content block does not contain text"
	case errors.Is(err, assistantService.ErrRunTimeout):
		return http.StatusGatewayTimeout, "Timed out waiting for the assistant"
	default:
		return http.StatusInternalServerError, "Failed to send message"
	}
}
