package speech

import "strings"

var supportedVoices = map[string]struct{}{
	"alloy":   {},
	"ash":     {},
	"coral":   {},
	"echo":    {},
	"fable":   {},
	"onyx":    {},
	"nova":    {},
	"sage":    {},
	"shimmer": {},
}

// ResolveVoice 返回请求的音色；为空或不受支持时使用默认音色。
func ResolveVoice(requested, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(requested))
	if normalized == "" {
		return fallback
	}
	if _, ok := supportedVoices[normalized]; ok {
		return normalized
	}
	return fallback
}

// contentTypeFor maps a TTS response format to its MIME type.
func contentTypeFor(format string) string {
	switch strings.ToLower(format) {
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}
