package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/voice-assistant/internal/model/persona"
)

func TestActivePersona(t *testing.T) {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed()), persona.DefaultID).RegisterRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/personas/active", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var p persona.Persona
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if p.Name != "Vitalii" {
		t.Fatalf("unexpected persona %+v", p)
	}
}

func TestActivePersonaMissing(t *testing.T) {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(nil), "ghost").RegisterRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/personas/active", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
