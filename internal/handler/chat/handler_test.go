package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	assistantService "github.com/zhouzirui/voice-assistant/internal/service/assistant"
)

type fakeAssistantService struct {
	sendCalls int
	lastReq   assistantService.SendRequest
	reply     string
	err       error
}

func (f *fakeAssistantService) CreateSession(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "thread_abc", nil
}

func (f *fakeAssistantService) InitAssistant(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "asst_abc", nil
}

func (f *fakeAssistantService) SendMessage(ctx context.Context, req assistantService.SendRequest, onStatus assistantService.StatusFunc) (string, error) {
	f.sendCalls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func setupRouter(svc AssistantService) *chi.Mux {
	r := chi.NewRouter()
	New(svc, zap.NewNop()).RegisterRoutes(r)
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return body
}

func TestCreateSession(t *testing.T) {
	r := setupRouter(&fakeAssistantService{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/create-session", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["sessionId"] != "thread_abc" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestInitAssistantFailure(t *testing.T) {
	r := setupRouter(&fakeAssistantService{err: errors.New("invalid api key")})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/init-assistant", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "Failed to initialize assistant" || body["details"] != "invalid api key" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSendMessageReturnsTextVerbatim(t *testing.T) {
	svc := &fakeAssistantService{reply: "  Hello, I'm Vitalii.\n"}
	r := setupRouter(svc)

	payload := `{"message":"hi","sessionId":"thread_abc","assistantId":"asst_abc"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(payload)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "  Hello, I'm Vitalii.\n" {
		t.Fatalf("unexpected body %v", body)
	}
	if svc.lastReq.ThreadID != "thread_abc" || svc.lastReq.AssistantID != "asst_abc" {
		t.Fatalf("unexpected request %+v", svc.lastReq)
	}
}

func TestSendMessageMissingFields(t *testing.T) {
	for _, payload := range []string{
		``,
		`{}`,
		`{"message":"hi","sessionId":"t"}`,
		`{"message":"","sessionId":"t","assistantId":"a"}`,
		`not json`,
	} {
		svc := &fakeAssistantService{}
		r := setupRouter(svc)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(payload)))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400, got %d", payload, rr.Code)
		}
		if svc.sendCalls != 0 {
			t.Fatalf("payload %q: service should not be called", payload)
		}
	}
}

func TestSendMessageErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{assistantService.ErrNoTextContent, http.StatusBadRequest},
		{fmt.Errorf("%w after 2m0s", assistantService.ErrRunTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: failed", assistantService.ErrRunFailed), http.StatusInternalServerError},
		{errors.New("network down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		r := setupRouter(&fakeAssistantService{err: tc.err})

		payload := `{"message":"hi","sessionId":"t","assistantId":"a"}`
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(payload)))

		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}

func TestNoTextContentMessage(t *testing.T) {
	status, message := ErrorStatus(assistantService.ErrNoTextContent)
	if status != http.StatusBadRequest || message != "Content block does not contain text" {
		t.Fatalf("unexpected mapping %d %q", status, message)
	}
}
