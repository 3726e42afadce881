package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/handler/chat"
	"github.com/zhouzirui/voice-assistant/internal/handler/image"
	"github.com/zhouzirui/voice-assistant/internal/handler/persona"
	"github.com/zhouzirui/voice-assistant/internal/handler/speech"
	"github.com/zhouzirui/voice-assistant/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/voice-assistant/internal/middleware"
	personaModel "github.com/zhouzirui/voice-assistant/internal/model/persona"
	"github.com/zhouzirui/voice-assistant/pkg/utils"
)

// Services groups what the router needs from the service layer.
type Services struct {
	Personas        personaModel.Store
	ActivePersonaID string
	Assistant       chat.AssistantService
	Image           image.ImageService
	Speech          speech.SpeechService
}

// Router is the gateway's HTTP handler.
type Router struct {
	http.Handler
	speech *speech.Handler
}

// Close releases long-lived connections such as recording uploads.
func (rt *Router) Close() {
	if rt.speech != nil {
		rt.speech.Close()
	}
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svcs Services, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(svcs.Assistant, logger)
	streamHandler := stream.New(svcs.Assistant, logger)
	imageHandler := image.New(svcs.Image, logger)
	speechHandler := speech.New(svcs.Speech, logger)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})

		if svcs.Personas != nil {
			persona.New(svcs.Personas, svcs.ActivePersonaID).RegisterRoutes(api)
		}

		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		imageHandler.RegisterRoutes(api)
		speechHandler.RegisterRoutes(api)
	})

	return &Router{Handler: r, speech: speechHandler}
}
