package speech

import (
	"io"
)

// ASRRequest 语音识别请求
type ASRRequest struct {
	AudioData io.Reader `json:"-"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"` // mp3, wav, webm, etc.
	Language  string    `json:"language,omitempty"`
}

// TTSRequest 语音合成请求
type TTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}
