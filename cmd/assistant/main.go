package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/client"
	"github.com/zhouzirui/voice-assistant/internal/config"
	"github.com/zhouzirui/voice-assistant/internal/shell"
)

func main() {
	serverURL := flag.String("server", "", "gateway base URL, overrides ASSISTANT_SERVER_URL")
	logPath := flag.String("log", "assistant.log", "log file; the terminal belongs to the shell")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *serverURL != "" {
		cfg.Client.ServerURL = *serverURL
	}
	if err := cfg.Client.Validate(); err != nil {
		log.Fatalf("invalid client configuration: %v", err)
	}

	logger, err := cfg.Log.NewLogger(*logPath)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	if err := run(ctx, cfg.Client, logger); err != nil {
		logger.Error("assistant exited", zap.Error(err))
		log.Fatalf("assistant exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	audio, err := client.NewAudioStore("")
	if err != nil {
		return err
	}
	defer audio.Close()

	var source client.AudioSource
	if cfg.RecordCommand != "" {
		source = client.CommandSource{Command: cfg.RecordCommand}
	}
	var player client.Player
	if cfg.PlayCommand != "" {
		player = client.CommandPlayer{Command: cfg.PlayCommand}
	}

	notifier := &shell.Notifier{}
	gateway := client.NewHTTPGateway(cfg.ServerURL, cfg.RequestTimeout, logger.Named("gateway"))
	orchestrator := client.NewOrchestrator(gateway, client.Options{
		RevealInterval: cfg.RevealInterval,
		RecordFormat:   cfg.RecordFormat,
		Player:         player,
		Source:         source,
		Audio:          audio,
		OnUpdate:       notifier.OnUpdate,
		OnState:        notifier.OnState,
		Logger:         logger.Named("orchestrator"),
	})

	program := tea.NewProgram(shell.New(ctx, orchestrator), tea.WithAltScreen(), tea.WithContext(ctx))
	notifier.Attach(program)

	logger.Info("assistant shell starting", zap.String("server", cfg.ServerURL))
	_, err = program.Run()
	if err != nil && ctx.Err() != nil {
		// Interrupted by signal.
		return nil
	}
	return err
}
