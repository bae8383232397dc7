package api

import (
	"errors"
	"time"

	"theta_preview/native/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thetapreview_camera_commands_total",
		Help: "Camera commands by outcome",
	}, []string{
		"command",
		"result", // ok|http_error|unavailable|request_error
	})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thetapreview_camera_command_duration_seconds",
		Help:    "Camera command round trip time",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"command"})
)

func observeCommand(command string, err error, elapsed time.Duration) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCommandFailed):
		result = "http_error"
	case errors.Is(err, domain.ErrCameraUnavailable):
		result = "unavailable"
	default:
		result = "request_error"
	}
	commandsTotal.WithLabelValues(command, result).Inc()
	commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}
