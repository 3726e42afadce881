package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk-test", 5*time.Second)
}

func TestCreateThreadSendsAssistantsHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/threads" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("OpenAI-Beta"); got != "assistants=v2" {
			t.Errorf("unexpected beta header %q", got)
		}
		w.Write([]byte(`{"id":"thread_123","created_at":1}`))
	})

	thread, err := client.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("CreateThread err: %v", err)
	}
	if thread.ID != "thread_123" {
		t.Fatalf("expected thread_123, got %s", thread.ID)
	}
}

func TestAPIErrorCarriesStatusCodeAndRetryAfter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "cat"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", apiErr.StatusCode)
	}
	if apiErr.Code != "rate_limit_exceeded" {
		t.Fatalf("unexpected code %q", apiErr.Code)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("expected 7s retry-after, got %s", apiErr.RetryAfter)
	}
	if apiErr.Message != "slow down" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestGenerateImageWithoutData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	if _, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "cat"}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestListMessagesDecodesContentBlocks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/thread_1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("order") != "desc" {
			t.Errorf("expected desc order, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":[{"id":"m2","role":"assistant","content":[{"type":"text","text":{"value":"hi there"}}]},{"id":"m1","role":"user","content":[{"type":"image_file","image_file":{"file_id":"f"}}]}]}`))
	})

	list, err := client.ListMessages(context.Background(), "thread_1")
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(list.Data) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list.Data))
	}
	if !list.Data[0].Content[0].IsText() || list.Data[0].Content[0].Text.Value != "hi there" {
		t.Fatalf("unexpected first block %+v", list.Data[0].Content[0])
	}
	if list.Data[1].Content[0].IsText() {
		t.Fatal("image block reported as text")
	}
}

func TestCreateSpeechReturnsRawBytes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req SpeechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode err: %v", err)
		}
		if req.Input != "hello" || req.Voice != "nova" {
			t.Errorf("unexpected speech request %+v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte{0xff, 0xfb, 0x01})
	})

	audio, err := client.CreateSpeech(context.Background(), SpeechRequest{Model: "tts-1", Voice: "nova", Input: "hello"})
	if err != nil {
		t.Fatalf("CreateSpeech err: %v", err)
	}
	if !bytes.Equal(audio, []byte{0xff, 0xfb, 0x01}) {
		t.Fatalf("unexpected audio %v", audio)
	}
}

func TestCreateTranscriptionUploadsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart err: %v", err)
			return
		}
		if got := r.FormValue("response_format"); got != "text" {
			t.Errorf("expected text response format, got %q", got)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "speech.wav" || string(data) != "riff" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		w.Write([]byte("hello world\n"))
	})

	text, err := client.CreateTranscription(context.Background(), TranscriptionRequest{
		Model:    "whisper-1",
		Filename: "speech.wav",
		Audio:    strings.NewReader("riff"),
	})
	if err != nil {
		t.Fatalf("CreateTranscription err: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected transcript %q", text)
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.in); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
