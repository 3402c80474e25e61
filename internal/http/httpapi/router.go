package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"playground/internal/http/handlers"
	"playground/internal/infra/geoip"
	"playground/internal/middleware"
)

// Options carries the optional pieces of the router.
type Options struct {
	// Static serves stored results under /static.
	Static http.Handler
	// Geo annotates request log lines with the caller's country.
	Geo geoip.CountryResolver
}

// NewRouter mounts every route of the playground API.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	origins := []string{"*"}
	rateLimit := 0
	if app.Config != nil {
		origins = app.Config.CORSOrigins
		rateLimit = app.Config.RateLimitPerMin
	}

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		middleware.Country(opts.Geo),
		chimw.Recoverer,
		middleware.CORS(origins),
	)

	r.Get("/", app.Root)
	r.Get("/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	limit := middleware.RateLimit(rateLimit, time.Minute)
	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/interpret", app.Interpret)
		r.Post("/generate", app.Generate)
		r.Post("/analyze", app.Analyze)
		r.Post("/upscale", app.Upscale)
		r.Post("/bgRemove", app.RemoveBackground)
		r.Post("/playground", app.RunPlayground)
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", app.ListHistory)
		r.With(limit).Post("/", app.SaveHistory)
		r.Delete("/", app.ClearHistory)
		r.Delete("/{id}", app.DeleteHistory)
	})

	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", opts.Static))
	}

	return r
}
