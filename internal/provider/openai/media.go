package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ErrNoImage is returned when the provider answers without image data.
var ErrNoImage = errors.New("no image generated")

// ImageRequest asks for generated images.
type ImageRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n,omitempty"`
	Size   string `json:"size,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// GenerateImage returns the URL of the first generated image.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	var resp imageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/images/generations", req, &resp, false); err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", ErrNoImage
	}
	return resp.Data[0].URL, nil
}

// SpeechRequest asks for synthesised audio.
type SpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// CreateSpeech returns the raw synthesised audio bytes.
func (c *Client) CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/audio/speech", bytes.NewReader(payload), false)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	audio, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	return audio, nil
}

// TranscriptionRequest uploads audio for transcription.
type TranscriptionRequest struct {
	Model    string
	Filename string
	Audio    io.Reader
	Language string
}

// CreateTranscription uploads audio and returns the plain-text transcript.
func (c *Client) CreateTranscription(ctx context.Context, req TranscriptionRequest) (string, error) {
	if req.Audio == nil {
		return "", errors.New("create transcription: audio is required")
	}
	filename := req.Filename
	if filename == "" {
		filename = "speech.mp3"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}

	fields := map[string]string{
		"model":           req.Model,
		"response_format": "text",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/audio/transcriptions", body, false)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	text, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}
