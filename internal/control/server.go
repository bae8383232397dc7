// Package control exposes the viewer's operations over a small local HTTP
// API: preview, shoot, session and settings, plus /metrics and /healthz.
package control

import (
	"context"
	"net/http"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"
	"theta_preview/native/internal/options"
	"theta_preview/native/internal/viewer"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Viewer is the subset of *viewer.Viewer served by the API.
type Viewer interface {
	StartPreview(ctx context.Context, size domain.VideoSize) error
	StopPreview(ctx context.Context) error
	Shoot(ctx context.Context) error
	Connect(ctx context.Context) error
	HangUp()
	Status() viewer.Status
	Controls() options.Controls
	SetControls(c options.Controls) error
	ApplyOptions(ctx context.Context) error
	ChangeExposureMode(ctx context.Context, mode options.Mode) error
	OpenSettings(ctx context.Context) (viewer.SettingsSheet, error)
	CloseSettings(ctx context.Context, specifyColorTemperature bool, shutterVolume int) error
}

// Config tunes the API router.
type Config struct {
	// RequestLimit per client IP and Window. Zero disables rate limiting.
	RequestLimit int
	Window       time.Duration
}

// DefaultConfig allows 120 requests per minute per IP.
func DefaultConfig() Config {
	return Config{RequestLimit: 120, Window: time.Minute}
}

type server struct {
	v      Viewer
	logger zerolog.Logger
}

// NewRouter builds the control API for v.
func NewRouter(v Viewer, cfg Config) http.Handler {
	s := &server{v: v, logger: xlog.WithComponent("control")}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metrics)
	r.Use(requestLog(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestLimit > 0 {
			r.Use(rateLimit(cfg.RequestLimit, cfg.Window))
		}

		r.Get("/state", s.state)

		r.Post("/preview/start", s.startPreview)
		r.Post("/preview/stop", s.stopPreview)
		r.Post("/shoot", s.shoot)

		r.Post("/connect", s.connect)
		r.Post("/hangup", s.hangUp)

		r.Get("/options", s.getOptions)
		r.Put("/options", s.putOptions)
		r.Post("/options/mode", s.changeMode)

		r.Get("/settings", s.openSettings)
		r.Post("/settings", s.closeSettings)
	})

	return r
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
		}),
	)
}
