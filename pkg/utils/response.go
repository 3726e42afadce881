package utils

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondErrorDetails 发送带详情的错误响应
func RespondErrorDetails(w http.ResponseWriter, status int, message string, details any) {
	RespondJSON(w, status, map[string]any{"error": message, "details": details})
}

// RespondAudio writes raw audio with an explicit Content-Length.
func RespondAudio(w http.ResponseWriter, contentType string, audio []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		zap.L().Warn("failed to write audio response", zap.Error(err))
	}
}
