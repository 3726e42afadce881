package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Client   ClientConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	var provider ProviderConfig
	if err := env.Parse(&provider); err != nil {
		return nil, fmt.Errorf("parse provider config: %w", err)
	}

	var client ClientConfig
	if err := env.Parse(&client); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}

	var logCfg LogConfig
	if err := env.Parse(&logCfg); err != nil {
		return nil, fmt.Errorf("parse log config: %w", err)
	}

	return &Config{Server: server, Provider: provider, Client: client, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ProviderConfig 描述上游 AI 服务（OpenAI 兼容接口）的配置。
type ProviderConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	BaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`

	RunPollInterval time.Duration `env:"PROVIDER_RUN_POLL_INTERVAL" envDefault:"1s"`
	RunTimeout      time.Duration `env:"PROVIDER_RUN_TIMEOUT" envDefault:"2m"`

	ImageModel          string        `env:"IMAGE_MODEL" envDefault:"dall-e-3"`
	ImageMaxRetries     int           `env:"IMAGE_MAX_RETRIES" envDefault:"5"`
	ImageRetryBaseDelay time.Duration `env:"IMAGE_RETRY_BASE_DELAY" envDefault:"1s"`

	TTSModel string `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice string `env:"TTS_VOICE" envDefault:"nova"`
	ASRModel string `env:"ASR_MODEL" envDefault:"whisper-1"`

	AssistantModel   string `env:"ASSISTANT_MODEL" envDefault:"gpt-4o"`
	AssistantPersona string `env:"ASSISTANT_PERSONA" envDefault:"vitalii"`
}

// Enabled 表示是否提供了必需的密钥。
func (c ProviderConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Validate 检查网关启动所需的配置。
func (c ProviderConfig) Validate() error {
	if !c.Enabled() {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.RunPollInterval <= 0 {
		return fmt.Errorf("invalid PROVIDER_RUN_POLL_INTERVAL value %s", c.RunPollInterval)
	}
	if c.RunTimeout < c.RunPollInterval {
		return fmt.Errorf("PROVIDER_RUN_TIMEOUT (%s) must not be shorter than the poll interval (%s)", c.RunTimeout, c.RunPollInterval)
	}
	if c.ImageMaxRetries < 0 {
		return fmt.Errorf("invalid IMAGE_MAX_RETRIES value %d", c.ImageMaxRetries)
	}
	return nil
}

// ClientConfig 描述终端客户端的配置。
type ClientConfig struct {
	ServerURL      string        `env:"ASSISTANT_SERVER_URL" envDefault:"http://localhost:8080"`
	RevealInterval time.Duration `env:"CLIENT_REVEAL_INTERVAL" envDefault:"50ms"`
	RecordCommand  string        `env:"CLIENT_RECORD_COMMAND" envDefault:"arecord -q -f cd -t wav"`
	RecordFormat   string        `env:"CLIENT_RECORD_FORMAT" envDefault:"wav"`
	PlayCommand    string        `env:"CLIENT_PLAY_COMMAND" envDefault:"mpg123 -q"`
	RequestTimeout time.Duration `env:"CLIENT_REQUEST_TIMEOUT" envDefault:"3m"`
}

// Validate 检查客户端配置。
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("ASSISTANT_SERVER_URL is required")
	}
	if c.RevealInterval <= 0 {
		return fmt.Errorf("invalid CLIENT_REVEAL_INTERVAL value %s", c.RevealInterval)
	}
	return nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// NewLogger 根据配置构建 zap 日志实例。outputPath 为空时写到标准错误。
func (c LogConfig) NewLogger(outputPath string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(c.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL value %q: %w", c.Level, err)
	}

	var zcfg zap.Config
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "", "json":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT value %q", c.Format)
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	if outputPath != "" {
		zcfg.OutputPaths = []string{outputPath}
		zcfg.ErrorOutputPaths = []string{outputPath}
	}

	return zcfg.Build()
}
