package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/config"
	speechmodel "github.com/zhouzirui/voice-assistant/internal/model/speech"
	"github.com/zhouzirui/voice-assistant/internal/provider/openai"
	"github.com/zhouzirui/voice-assistant/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	if !cfg.Provider.Enabled() {
		log.Fatal("语音服务未启用，请先配置 OPENAI_API_KEY")
	}

	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认自动生成)")
	format := flag.String("format", "", "ASR 输入格式，默认取文件扩展名")
	language := flag.String("lang", "", "ASR 语言代码，留空自动识别")
	voice := flag.String("voice", "", "TTS 声音，默认使用配置中的 TTS_VOICE")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}

	logger, err := cfg.Log.NewLogger("")
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer logger.Sync()

	provider := openai.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout,
		openai.WithLogger(logger.Named("provider")),
	)
	svc := speech.NewService(provider, speech.Config{
		TTSModel: cfg.Provider.TTSModel,
		Voice:    cfg.Provider.TTSVoice,
		ASRModel: cfg.Provider.ASRModel,
	}, logger.Named("speech"))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, svc, logger, *audioPath, *format, *language)
	case "tts":
		runTTS(ctx, svc, logger, *text, *voice, *outputPath)
	}
}

func runASR(ctx context.Context, svc *speech.Service, logger *zap.Logger, audioPath, format, language string) {
	if audioPath == "" {
		log.Fatal("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		log.Fatalf("打开音频文件失败: %v", err)
	}
	defer file.Close()

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	logger.Info("starting ASR test", zap.String("file", audioPath), zap.String("format", format))

	resp, err := svc.TranscribeAudio(ctx, &speechmodel.ASRRequest{
		AudioData: file,
		Filename:  filepath.Base(audioPath),
		Format:    format,
		Language:  language,
	})
	if err != nil {
		log.Fatalf("ASR 调用失败: %v", err)
	}

	logger.Info("ASR succeeded", zap.String("text", resp.Transcription), zap.Int("bytes", resp.Bytes))
	fmt.Println(resp.Transcription)
}

func runTTS(ctx context.Context, svc *speech.Service, logger *zap.Logger, text, voice, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}

	logger.Info("starting TTS test", zap.String("voice", voice), zap.Int("chars", len([]rune(text))))

	resp, err := svc.SynthesizeSpeech(ctx, &speechmodel.TTSRequest{Text: text, Voice: voice})
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	logger.Info("TTS succeeded", zap.String("out", outputPath), zap.Int("bytes", len(resp.AudioData)), zap.String("content_type", resp.ContentType))
}
