package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

type RouterOptions struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/files", app.File)
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/generate", app.Generate)
		r.Get("/projects/{id}", app.GetProject)
		r.Get("/projects/{id}/archive", app.ProjectArchive)
	})

	return r
}
