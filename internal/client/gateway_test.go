package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(srv.URL+"/", 5*time.Second, zap.NewNop())
}

func TestGatewaySendMessage(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send-message" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["message"] != "hi" || body["sessionId"] != "thread_1" || body["assistantId"] != "asst_1" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"message":"hello!"}`))
	})

	reply, err := gw.SendMessage(context.Background(), "thread_1", "asst_1", "hi")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if reply != "hello!" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestGatewayErrorCarriesStatus(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Error generating image","details":"Rate limit reached","status":429,"code":"rate_limit_exceeded"}`))
	})

	_, err := gw.GenerateImage(context.Background(), "create image of a cat")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.StatusCode != http.StatusTooManyRequests || gwErr.Message != "Error generating image: Rate limit reached" {
		t.Fatalf("unexpected error %+v", gwErr)
	}
}

func TestGatewayBootstrapCalls(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/init-assistant":
			w.Write([]byte(`{"assistantId":"asst_9"}`))
		case "/api/create-session":
			w.Write([]byte(`{"sessionId":"thread_9"}`))
		default:
			http.NotFound(w, r)
		}
	})

	assistantID, err := gw.InitAssistant(context.Background())
	if err != nil || assistantID != "asst_9" {
		t.Fatalf("InitAssistant = %q, %v", assistantID, err)
	}
	threadID, err := gw.CreateSession(context.Background())
	if err != nil || threadID != "thread_9" {
		t.Fatalf("CreateSession = %q, %v", threadID, err)
	}
}

func TestGatewaySynthesizeReturnsBytes(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte{0x49, 0x44, 0x33})
	})

	audio, err := gw.SynthesizeSpeech(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SynthesizeSpeech err: %v", err)
	}
	if string(audio) != "ID3" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestGatewayTranscribeUploadsMultipart(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "speech.wav" || string(data) != "RIFFdata" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		w.Write([]byte(`{"transcription":"create image of a fox"}`))
	})

	text, err := gw.TranscribeAudio(context.Background(), "speech.wav", []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("TranscribeAudio err: %v", err)
	}
	if text != "create image of a fox" {
		t.Fatalf("unexpected text %q", text)
	}
}
