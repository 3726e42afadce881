package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gateway is the client's view of the assistant gateway.
type Gateway interface {
	InitAssistant(ctx context.Context) (string, error)
	CreateSession(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, sessionID, assistantID, message string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
	TranscribeAudio(ctx context.Context, filename string, audio []byte) (string, error)
}

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
}

// HTTPGateway calls the gateway over HTTP.
type HTTPGateway struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPGateway creates a gateway client rooted at baseURL.
func NewHTTPGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// InitAssistant implements Gateway.
func (g *HTTPGateway) InitAssistant(ctx context.Context) (string, error) {
	var resp struct {
		AssistantID string `json:"assistantId"`
	}
	if err := g.postJSON(ctx, "/api/init-assistant", nil, &resp); err != nil {
		return "", fmt.Errorf("init assistant: %w", err)
	}
	return resp.AssistantID, nil
}

// CreateSession implements Gateway.
func (g *HTTPGateway) CreateSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := g.postJSON(ctx, "/api/create-session", nil, &resp); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return resp.SessionID, nil
}

// SendMessage implements Gateway.
func (g *HTTPGateway) SendMessage(ctx context.Context, sessionID, assistantID, message string) (string, error) {
	req := map[string]string{
		"message":     message,
		"sessionId":   sessionID,
		"assistantId": assistantID,
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := g.postJSON(ctx, "/api/send-message", req, &resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.Message, nil
}

// GenerateImage implements Gateway.
func (g *HTTPGateway) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var resp struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := g.postJSON(ctx, "/api/generate-image", map[string]string{"prompt": prompt}, &resp); err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	return resp.ImageURL, nil
}

// SynthesizeSpeech implements Gateway.
func (g *HTTPGateway) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/synthesize-speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	audio, err := g.do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	return audio, nil
}

// TranscribeAudio implements Gateway.
func (g *HTTPGateway) TranscribeAudio(ctx context.Context, filename string, audio []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/transcribe-audio", body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := g.do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	var resp struct {
		Transcription string `json:"transcription"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return resp.Transcription, nil
}

func (g *HTTPGateway) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := g.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (g *HTTPGateway) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	g.logger.Debug("gateway call",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		if details, ok := env.Details.(string); ok && details != "" {
			return env.Error + ": " + details
		}
		return env.Error
	}
	return strings.TrimSpace(string(body))
}
