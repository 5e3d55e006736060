package server

import (
	"net/http"

	"github.com/cloo-solutions/guardian/internal/api"
	"github.com/cloo-solutions/guardian/internal/api/handlers"
	"github.com/cloo-solutions/guardian/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const defaultMaxBodyBytes int64 = 25 * 1024 * 1024

type RouterConfig struct {
	// TokenValidator guards every route except /health. Nil leaves the API open.
	TokenValidator  middleware.TokenValidator
	DocumentHandler *handlers.DocumentHandler
	WebHandler      *handlers.WebHandler
	AllowedOrigins  []string
	MaxBodyBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.TokenValidator))

		r.Post("/upload", cfg.DocumentHandler.Upload)
		r.Post("/query", cfg.DocumentHandler.Query)

		r.Route("/documents/{filename}", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.Status)
			r.Get("/download", cfg.DocumentHandler.Download)
		})

		r.Route("/web", func(r chi.Router) {
			r.Post("/search", cfg.WebHandler.Search)
			r.Post("/qa", cfg.WebHandler.QA)
		})
	})

	return r
}
