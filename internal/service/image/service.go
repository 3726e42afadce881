package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/provider/openai"
)

// ErrPromptRequired is returned for an empty prompt.
var ErrPromptRequired = errors.New("prompt is required")

// Provider generates images.
type Provider interface {
	GenerateImage(ctx context.Context, req openai.ImageRequest) (string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config controls image generation and its rate-limit backoff.
type Config struct {
	Model      string
	Size       string
	MaxRetries int
	BaseDelay  time.Duration
}

// Service generates images, retrying on rate limits.
type Service struct {
	provider Provider
	cfg      Config
	sleep    SleepFunc
	logger   *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithSleep replaces the backoff sleeper.
func WithSleep(fn SleepFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// NewService creates an image service.
func NewService(provider Provider, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.Model == "" {
		cfg.Model = "dall-e-3"
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		provider: provider,
		cfg:      cfg,
		sleep:    sleepContext,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns the URL of one image for prompt. A 429 from the provider
// is retried up to MaxRetries times; any other failure is returned at once.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrPromptRequired
	}

	req := openai.ImageRequest{
		Model:  s.cfg.Model,
		Prompt: prompt,
		N:      1,
		Size:   s.cfg.Size,
	}

	for attempt := 0; ; attempt++ {
		url, err := s.provider.GenerateImage(ctx, req)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("image generated after retries", zap.Int("attempts", attempt+1))
			}
			return url, nil
		}

		var apiErr *openai.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests || attempt >= s.cfg.MaxRetries {
			return "", err
		}

		delay := s.backoff(attempt, apiErr.RetryAfter)
		s.logger.Warn("image generation rate limited",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)

		if err := s.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("image backoff interrupted: %w", err)
		}
	}
}

// backoff returns max(base*2^attempt, retryAfter), with retryAfter
// defaulting to one second.
func (s *Service) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	delay := s.cfg.BaseDelay << uint(attempt)
	if retryAfter > delay {
		return retryAfter
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
