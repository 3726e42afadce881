package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/config"
	"github.com/zhouzirui/voice-assistant/internal/handler"
	"github.com/zhouzirui/voice-assistant/internal/model/persona"
	"github.com/zhouzirui/voice-assistant/internal/provider/openai"
	"github.com/zhouzirui/voice-assistant/internal/service/assistant"
	"github.com/zhouzirui/voice-assistant/internal/service/image"
	"github.com/zhouzirui/voice-assistant/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := cfg.Log.NewLogger("")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	if err := cfg.Provider.Validate(); err != nil {
		logger.Fatal("invalid provider configuration", zap.Error(err))
	}

	provider := openai.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout,
		openai.WithLogger(logger.Named("provider")),
	)

	personaStore := persona.NewMemoryStore(persona.Seed())
	if _, ok := personaStore.FindByID(cfg.Provider.AssistantPersona); !ok {
		logger.Fatal("unknown persona", zap.String("persona", cfg.Provider.AssistantPersona))
	}

	assistantSvc := assistant.NewService(provider, personaStore, assistant.Config{
		PersonaID:    cfg.Provider.AssistantPersona,
		Model:        cfg.Provider.AssistantModel,
		PollInterval: cfg.Provider.RunPollInterval,
		RunTimeout:   cfg.Provider.RunTimeout,
	}, logger.Named("assistant"))

	imageSvc := image.NewService(provider, image.Config{
		Model:      cfg.Provider.ImageModel,
		MaxRetries: cfg.Provider.ImageMaxRetries,
		BaseDelay:  cfg.Provider.ImageRetryBaseDelay,
	}, logger.Named("image"))

	speechSvc := speech.NewService(provider, speech.Config{
		TTSModel: cfg.Provider.TTSModel,
		Voice:    cfg.Provider.TTSVoice,
		ASRModel: cfg.Provider.ASRModel,
	}, logger.Named("speech"))

	router := handler.NewRouter(handler.Services{
		Personas:        personaStore,
		ActivePersonaID: cfg.Provider.AssistantPersona,
		Assistant:       assistantSvc,
		Image:           imageSvc,
		Speech:          speechSvc,
	}, logger.Named("http"))
	defer router.Close()

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("voice assistant gateway listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
