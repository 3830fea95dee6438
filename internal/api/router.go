package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/orihero/aish-sub002/internal/api/handler"
	customMiddleware "github.com/orihero/aish-sub002/internal/api/middleware"
	"github.com/orihero/aish-sub002/internal/config"
	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/orihero/aish-sub002/internal/security"
)

// Dependencies are the components the HTTP layer is wired to
type Dependencies struct {
	Chats       handler.ChatService
	LLMRouter   *llm.Router
	JWTManager  *security.JWTManager
	RateLimiter customMiddleware.RateLimiter
	// Ready lists the dependencies checked by /ready
	Ready map[string]handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handler.NewChatHandler(deps.Chats, cfg.Screening.MaxMessageLength)
	authMiddleware := customMiddleware.NewAuthMiddleware(deps.JWTManager)

	// turns are throttled per caller since every one costs a completion
	limit := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		limit = customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Ready))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLMRouter))

			r.Route("/applications/{applicationID}/chat", func(r chi.Router) {
				r.Get("/", chatHandler.GetByApplication)
				r.With(limit).Post("/start", chatHandler.Start)
			})

			r.Route("/chats/{chatID}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.With(limit).Post("/messages", chatHandler.SendMessage)

				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.RequireStaff)
					r.Post("/evaluate", chatHandler.Evaluate)
					r.Post("/reject", chatHandler.Reject)
				})
			})

			r.With(customMiddleware.RequireStaff).Get("/vacancies/{vacancyID}/chats", chatHandler.ListByVacancy)
		})
	})

	return r
}
