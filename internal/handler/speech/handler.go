package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/model/speech"
	"github.com/zhouzirui/voice-assistant/pkg/utils"
)

const maxUploadSize = 32 << 20 // 32MB

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
	SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
	TranscribeBuffer(ctx context.Context, audio []byte, format string) (*speech.ASRResponse, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	ws        *WebSocketHandler
	logger    *zap.Logger
}

// New 创建语音处理器
func New(speechSvc SpeechService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		speechSvc: speechSvc,
		ws:        NewWebSocketHandler(speechSvc, logger),
		logger:    logger,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/synthesize-speech", h.handleSynthesize)
	r.Post("/transcribe-audio", h.handleTranscribe)
	r.Get("/transcribe-audio/ws", h.ws.handleWebSocket)
}

// Close 关闭所有进行中的录音上传连接
func (h *Handler) Close() {
	h.ws.connections.CloseAll()
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// handleSynthesize 处理文本转语音请求
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Text is required")
		return
	}

	resp, err := h.speechSvc.SynthesizeSpeech(r.Context(), &speech.TTSRequest{Text: req.Text, Voice: req.Voice})
	if err != nil {
		h.logger.Error("speech synthesis failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to generate speech")
		return
	}

	utils.RespondAudio(w, resp.ContentType, resp.AudioData)
}

// handleTranscribe 处理语音转文本请求
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	resp, err := h.speechSvc.TranscribeAudio(r.Context(), &speech.ASRRequest{
		AudioData: file,
		Filename:  header.Filename,
		Format:    inferAudioFormat(header.Filename),
		Language:  r.FormValue("language"),
	})
	if err != nil {
		h.logger.Error("transcription failed", zap.String("filename", header.Filename), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Error transcribing audio")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"transcription": resp.Transcription})
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".wav", ".webm", ".m4a", ".ogg", ".flac", ".mp4", ".mpeg", ".mpga":
		return strings.TrimPrefix(ext, ".")
	default:
		return "mp3"
	}
}
