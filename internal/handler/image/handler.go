package image

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/provider/openai"
	"github.com/zhouzirui/voice-assistant/pkg/utils"
)

// ImageService generates an image URL for a prompt.
type ImageService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Handler 图像生成的HTTP处理器
type Handler struct {
	imageSvc ImageService
	logger   *zap.Logger
}

// New 创建图像处理器
func New(imageSvc ImageService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{imageSvc: imageSvc, logger: logger}
}

// RegisterRoutes 注册图像相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate-image", h.handleGenerate)
}

type generateResponse struct {
	Status   string `json:"status"`
	ImageURL string `json:"imageUrl"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Prompt) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	url, err := h.imageSvc.Generate(r.Context(), payload.Prompt)
	if err != nil {
		status, resp := describeError(err)
		h.logger.Error("image generation failed", zap.Int("status", status), zap.Error(err))
		utils.RespondJSON(w, status, resp)
		return
	}

	utils.RespondJSON(w, http.StatusOK, generateResponse{Status: "complete", ImageURL: url})
}

// describeError propagates the provider's status and code when present.
func describeError(err error) (int, errorResponse) {
	resp := errorResponse{Error: "Error generating image", Details: err.Error()}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		resp.Status = apiErr.StatusCode
		resp.Code = apiErr.Code
		if apiErr.Message != "" {
			resp.Details = apiErr.Message
		}
		return apiErr.StatusCode, resp
	}

	resp.Status = http.StatusInternalServerError
	return http.StatusInternalServerError, resp
}
