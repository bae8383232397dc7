package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thetapreview_sessions_started_total",
		Help: "Peer sessions started, by initial state",
	}, []string{"state"}) // answering|offering

	sessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thetapreview_sessions_closed_total",
		Help: "Peer sessions hung up",
	})

	capturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thetapreview_captures_total",
		Help: "Still captures by outcome",
	}, []string{"result"}) // ok|timeout|canceled|error

	captureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "thetapreview_capture_duration_seconds",
		Help:    "Time from shoot request to preview running again",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	})

	statusPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thetapreview_shooting_status_polls_total",
		Help: "getShootingStatus polls issued while waiting for a capture",
	})
)
