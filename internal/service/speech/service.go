package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/model/speech"
	"github.com/zhouzirui/voice-assistant/internal/provider/openai"
)

var (
	ErrTextRequired  = errors.New("text is required")
	ErrAudioRequired = errors.New("audio is required")
)

// Provider 语音能力提供方
type Provider interface {
	CreateSpeech(ctx context.Context, req openai.SpeechRequest) ([]byte, error)
	CreateTranscription(ctx context.Context, req openai.TranscriptionRequest) (string, error)
}

// Config 语音服务配置
type Config struct {
	TTSModel     string
	Voice        string
	OutputFormat string
	ASRModel     string
}

// Service 语音服务核心业务逻辑
type Service struct {
	provider Provider
	cfg      Config
	logger   *zap.Logger
}

// NewService 创建语音服务实例
func NewService(provider Provider, cfg Config, logger *zap.Logger) *Service {
	if cfg.TTSModel == "" {
		cfg.TTSModel = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "nova"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3"
	}
	if cfg.ASRModel == "" {
		cfg.ASRModel = "whisper-1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{provider: provider, cfg: cfg, logger: logger}
}

// SynthesizeSpeech 文字转语音
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextRequired
	}

	voice := ResolveVoice(req.Voice, s.cfg.Voice)
	audio, err := s.provider.CreateSpeech(ctx, openai.SpeechRequest{
		Model:          s.cfg.TTSModel,
		Voice:          voice,
		Input:          req.Text,
		ResponseFormat: s.cfg.OutputFormat,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("speech synthesized",
		zap.String("voice", voice),
		zap.Int("chars", len(req.Text)),
		zap.Int("bytes", len(audio)),
	)

	return &speech.TTSResponse{
		AudioData:   audio,
		ContentType: contentTypeFor(s.cfg.OutputFormat),
		CreatedAt:   time.Now(),
	}, nil
}

// TranscribeAudio 语音转文字
func (s *Service) TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if req == nil || req.AudioData == nil {
		return nil, ErrAudioRequired
	}

	counter := &countingReader{r: req.AudioData}
	text, err := s.provider.CreateTranscription(ctx, openai.TranscriptionRequest{
		Model:    s.cfg.ASRModel,
		Filename: uploadName(req),
		Audio:    counter,
		Language: req.Language,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("audio transcribed", zap.Int("bytes", counter.n), zap.Int("chars", len(text)))

	return &speech.ASRResponse{
		Transcription: text,
		Bytes:         counter.n,
		CreatedAt:     time.Now(),
	}, nil
}

// TranscribeBuffer 语音转文字（使用字节数组）
func (s *Service) TranscribeBuffer(ctx context.Context, audio []byte, format string) (*speech.ASRResponse, error) {
	if len(audio) == 0 {
		return nil, ErrAudioRequired
	}
	return s.TranscribeAudio(ctx, &speech.ASRRequest{
		AudioData: bytes.NewReader(audio),
		Format:    format,
	})
}

func uploadName(req *speech.ASRRequest) string {
	if req.Filename != "" {
		return req.Filename
	}
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(req.Format)), ".")
	if format == "" {
		format = "mp3"
	}
	return fmt.Sprintf("speech.%s", format)
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
