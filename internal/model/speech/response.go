package speech

import "time"

// ASRResponse 语音识别响应
type ASRResponse struct {
	Transcription string    `json:"transcription"`
	Bytes         int       `json:"-"`
	CreatedAt     time.Time `json:"-"`
}

// TTSResponse 语音合成响应
type TTSResponse struct {
	AudioData   []byte    `json:"-"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"-"`
}
