package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"nexcv-backend/internal/auth"
	"nexcv-backend/internal/credits"
	"nexcv-backend/internal/handlers"
	"nexcv-backend/internal/metrics"
	"nexcv-backend/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Resumes *handlers.ResumeHandler
	AI      *handlers.AIHandler
	Credits *handlers.CreditsHandler
	Import  *handlers.ImportHandler

	Auth       *auth.Resolver
	CreditsSvc *credits.Service
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h Handlers) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())               // panic recovery
	r.Use(middleware.Timeout(30 * time.Second)) // request timeout
	r.Use(middleware.MaxBodySize(2 << 20))      // 2 MB max body

	// The webhook authenticates by provider signature, not by bearer token,
	// so it sits outside the /api group.
	r.Post("/webhooks/stripe", h.Credits.Webhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(h.Auth))

		r.Route("/resumes", func(r chi.Router) {
			r.Get("/public/{slug}", h.Resumes.GetPublic)
			r.Post("/", h.Resumes.Create)
			r.Get("/", h.Resumes.List)
			r.Get("/{id}", h.Resumes.GetByID)
			r.Put("/{id}", h.Resumes.Update)
			r.Delete("/{id}", h.Resumes.Delete)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Get("/conversation/{conversationId}", h.AI.GetConversation)
			r.Post("/test-normalization", h.AI.TestNormalization)

			r.Get("/cache/stats", h.AI.CacheStats)
			r.Delete("/cache", h.AI.ClearCache)

			r.Get("/admin/logs/user/{userId}", h.AI.UserLogs)
			r.Get("/admin/logs/resume/{resumeId}", h.AI.ResumeLogs)

			// Metered routes: rate limited and paid for up front.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(20, time.Minute))

				r.With(credits.Require(h.CreditsSvc, 1, "chat-with-ai-cost")).
					Post("/chat", h.AI.Chat)
				r.With(credits.Require(h.CreditsSvc, 1, "enhance-resume-cost")).
					Post("/enhance-resume", h.AI.Enhance)
			})
		})

		r.Route("/credits", func(r chi.Router) {
			r.Get("/balance", h.Credits.Balance)
			r.Get("/history", h.Credits.History)
			r.Get("/pricing", h.Credits.Pricing)
			r.Post("/checkout", h.Credits.Checkout)

			r.Post("/admin/{userId}/add", h.Credits.AdminAdd)
			r.Post("/admin/{userId}/revoke", h.Credits.AdminRevoke)
		})

		r.With(
			middleware.RateLimit(10, time.Minute),
			credits.Require(h.CreditsSvc, 1, "import-profile-cost"),
		).Post("/import/profile", h.Import.Import)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
