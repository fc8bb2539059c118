package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

// Options carries the middleware collaborators of the router.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	Limiter        middleware.Limiter
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/presets", app.Presets)
		r.Get("/usage", app.UsageReport)

		r.Group(func(r chi.Router) {
			if opts.Limiter != nil {
				r.Use(middleware.RateLimit(opts.Limiter, opts.Logger))
			}
			r.Post("/prompts/enhance", app.EnhancePrompt)
			r.Post("/sessions", app.CreateSession)
			r.Route("/sessions/{sid}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Delete("/", app.DeleteSession)
				r.Put("/image", app.PutImage)
				r.Get("/image", app.GetImage)
				r.Get("/events", app.Events)

				r.Get("/candidates", app.ListCandidates)
				r.Get("/candidates.zip", app.CandidatesZip)
				r.Get("/candidates/{cid}", app.GetCandidate)
				r.Post("/candidates/{cid}/select", app.SelectCandidate)

				r.Route("/panels/{panel}", func(r chi.Router) {
					r.Get("/", app.GetPanel)
					r.Post("/files", app.AddFiles)
					r.Delete("/files", app.ClearFiles)
					r.Delete("/files/{index}", app.RemoveFile)
					r.Put("/role", app.SetRole)
					r.Put("/prompt", app.SetPrompt)
					r.Post("/generate", app.Generate)
					r.Get("/previews/{hid}", app.GetPreview)
				})
			})
		})
	})

	return r
}
