package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	viewsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailbeacon_views_recorded_total",
		Help: "Pixel fetches counted as genuine views.",
	})
	viewsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailbeacon_views_suppressed_total",
		Help: "Pixel fetches attributed to the creator and not counted.",
	})
)
