package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multichat/internal/handlers"
	"multichat/internal/metrics"
	"multichat/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService         service.ChatService
	ConversationService service.ConversationService
	CredentialService   service.CredentialService
	SettingsService     service.SettingsService
	Tokens              TokenVerifier
	DB                  handlers.Pinger
	Metrics             *metrics.Metrics
	// Gatherer backs /metrics. Nil means the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger(deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	conversationHandler := handlers.NewConversationHandler(deps.ConversationService)
	credentialHandler := handlers.NewCredentialHandler(deps.CredentialService, deps.ChatService)
	settingsHandler := handlers.NewSettingsHandler(deps.SettingsService)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.DB))
		r.Get("/providers", chatHandler.Providers)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(deps.Tokens))

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversationHandler.List)
				r.Post("/", conversationHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversationHandler.Get)
					r.Patch("/", conversationHandler.Rename)
					r.Delete("/", conversationHandler.Delete)
					r.Post("/duplicate", conversationHandler.Duplicate)
					r.Post("/messages", chatHandler.SendMessage)
					r.Get("/branches", conversationHandler.ListBranches)
					r.Post("/branches", conversationHandler.CreateBranch)
					r.Get("/export", conversationHandler.Export)
				})
			})

			r.Route("/credentials", func(r chi.Router) {
				r.Get("/", credentialHandler.List)
				r.Post("/", credentialHandler.Save)
				r.Post("/test", credentialHandler.Test)
				r.Delete("/{id}", credentialHandler.Delete)
			})

			r.Get("/settings", settingsHandler.Get)
			r.Patch("/settings", settingsHandler.Update)
		})
	})

	return r
}
