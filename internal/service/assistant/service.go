package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/model/persona"
	"github.com/zhouzirui/voice-assistant/internal/provider/openai"
)

var (
	ErrInvalidRequest = errors.New("message, sessionId and assistantId are required")
	ErrPersonaMissing = errors.New("persona not found")
	ErrRunFailed      = errors.New("run did not complete")
	ErrRunTimeout     = errors.New("timed out waiting for run to complete")
	ErrNoTextContent  = errors.New("content block does not contain text")
)

// Provider is the subset of the provider API used by the assistant service.
type Provider interface {
	CreateThread(ctx context.Context) (*openai.Thread, error)
	CreateAssistant(ctx context.Context, req openai.AssistantRequest) (*openai.Assistant, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (*openai.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (*openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*openai.Run, error)
	ListMessages(ctx context.Context, threadID string) (*openai.MessageList, error)
}

// Config controls the assistant service.
type Config struct {
	PersonaID    string
	Model        string
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// SendRequest is one user turn against an existing thread.
type SendRequest struct {
	Message     string `json:"message"`
	ThreadID    string `json:"sessionId"`
	AssistantID string `json:"assistantId"`
}

// Validate checks that every field is present.
func (r SendRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" || strings.TrimSpace(r.ThreadID) == "" || strings.TrimSpace(r.AssistantID) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// StatusFunc observes run status while a send is polling.
type StatusFunc func(status string)

// Service manages threads, assistants and runs on the provider.
type Service struct {
	provider Provider
	personas persona.Store
	prompts  *PersonaPromptBuilder
	cfg      Config
	logger   *zap.Logger
}

// NewService creates an assistant service.
func NewService(provider Provider, personas persona.Store, cfg Config, logger *zap.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if cfg.PersonaID == "" {
		cfg.PersonaID = persona.DefaultID
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		provider: provider,
		personas: personas,
		prompts:  NewPersonaPromptBuilder(),
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateSession creates a provider thread and returns its identifier.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	thread, err := s.provider.CreateThread(ctx)
	if err != nil {
		return "", err
	}

	s.logger.Info("thread created", zap.String("thread_id", thread.ID))
	return thread.ID, nil
}

// InitAssistant registers the configured persona as a provider assistant.
func (s *Service) InitAssistant(ctx context.Context) (string, error) {
	p, ok := s.personas.FindByID(s.cfg.PersonaID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPersonaMissing, s.cfg.PersonaID)
	}

	instructions, err := s.prompts.BuildInstructions(ctx, &p)
	if err != nil {
		return "", err
	}

	model := s.cfg.Model
	if model == "" {
		model = p.Model
	}

	s.logger.Info("initializing assistant", zap.String("persona", p.ID), zap.String("model", model))

	assistant, err := s.provider.CreateAssistant(ctx, openai.AssistantRequest{
		Name:         p.Name,
		Instructions: instructions,
		Model:        model,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("assistant created", zap.String("assistant_id", assistant.ID))
	return assistant.ID, nil
}

// SendMessage appends the user message, runs the assistant and returns the
// text of the newest thread message. onStatus may be nil.
func (s *Service) SendMessage(ctx context.Context, req SendRequest, onStatus StatusFunc) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	if _, err := s.provider.CreateMessage(ctx, req.ThreadID, "user", req.Message); err != nil {
		return "", err
	}

	run, err := s.provider.CreateRun(ctx, req.ThreadID, req.AssistantID)
	if err != nil {
		return "", err
	}

	if err := s.waitForRun(ctx, req.ThreadID, run.ID, onStatus); err != nil {
		return "", err
	}

	messages, err := s.provider.ListMessages(ctx, req.ThreadID)
	if err != nil {
		return "", err
	}

	text, err := latestText(messages)
	if err != nil {
		return "", err
	}

	s.logger.Info("run completed",
		zap.String("thread_id", req.ThreadID),
		zap.String("run_id", run.ID),
		zap.Int("length", len(text)),
	)
	return text, nil
}

// waitForRun polls the run at a fixed interval until it completes, fails or
// the run timeout elapses.
func (s *Service) waitForRun(ctx context.Context, threadID, runID string, onStatus StatusFunc) error {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		run, err := s.provider.RetrieveRun(pollCtx, threadID, runID)
		if err != nil {
			return s.pollError(ctx, pollCtx, err)
		}

		if onStatus != nil {
			onStatus(run.Status)
		}

		switch run.Status {
		case openai.RunCompleted:
			return nil
		case openai.RunFailed, openai.RunCancelled, openai.RunExpired, openai.RunIncomplete:
			if run.LastError != nil && run.LastError.Message != "" {
				return fmt.Errorf("%w: %s (%s)", ErrRunFailed, run.Status, run.LastError.Message)
			}
			return fmt.Errorf("%w: %s", ErrRunFailed, run.Status)
		}

		select {
		case <-pollCtx.Done():
			return s.pollError(ctx, pollCtx, pollCtx.Err())
		case <-ticker.C:
		}
	}
}

// pollError distinguishes the run timeout from caller cancellation.
func (s *Service) pollError(parent, pollCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("run polling timed out", zap.Duration("timeout", s.cfg.RunTimeout))
		return fmt.Errorf("%w after %s", ErrRunTimeout, s.cfg.RunTimeout)
	}
	return err
}

func latestText(list *openai.MessageList) (string, error) {
	if list == nil || len(list.Data) == 0 || len(list.Data[0].Content) == 0 {
		return "", ErrNoTextContent
	}

	block := list.Data[0].Content[0]
	if !block.IsText() {
		return "", ErrNoTextContent
	}
	return block.Text.Value, nil
}
