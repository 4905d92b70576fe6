package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-annotator/internal/annotation"
	"video-annotator/internal/handlers"
	"video-annotator/internal/render"
	"video-annotator/internal/service"
)

// DefaultIndexHTML is served at / when Deps.IndexHTML is empty.
const DefaultIndexHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Video Annotator</title></head>
<body>
  <h1>Video Annotator API</h1>
  <ul>
    <li><a href="/api/annotations">/api/annotations</a></li>
    <li><a href="/api/annotations/report">/api/annotations/report</a></li>
    <li><a href="/api/video/config">/api/video/config</a></li>
    <li><a href="/api/health">/api/health</a></li>
  </ul>
</body>
</html>`

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Service            service.AnnotationService
	Video              handlers.VideoSource
	Policy             annotation.WindowPolicy
	Canvas             *render.Canvas
	RateLimitPerMinute int
	IndexHTML          string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(Metrics)
	r.Use(CORS)

	canvas := deps.Canvas
	if canvas == nil {
		canvas = render.NewCanvas(render.DefaultOptions())
	}
	annotations := handlers.NewAnnotationHandler(deps.Service)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(deps.RateLimitPerMinute))

		r.Route("/annotations", func(r chi.Router) {
			r.Get("/", annotations.List)
			r.Post("/", annotations.Create)
			r.Method(http.MethodGet, "/overlay.png", handlers.NewOverlayHandler(deps.Service, canvas))
			r.Method(http.MethodGet, "/report", handlers.NewReportHandler(deps.Service, deps.Policy))
			r.Put("/{id}", annotations.Update)
			r.Delete("/{id}", annotations.Delete)
		})
		r.Method(http.MethodGet, "/video/config", handlers.NewVideoHandler(deps.Video))
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Service))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	indexHTML := deps.IndexHTML
	if indexHTML == "" {
		indexHTML = DefaultIndexHTML
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(indexHTML))
	})

	return r
}
