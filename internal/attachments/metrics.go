package attachments

import (
	"errors"

	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coordinator's Prometheus collectors.
type Metrics struct {
	cacheLookups  *prometheus.CounterVec
	downloads     *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	inflight      prometheus.Gauge
	waitersJoined prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatattach",
				Name:      "cache_lookups_total",
				Help:      "Attachment cache lookups on the fetch path.",
			},
			[]string{"result"},
		),
		downloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatattach",
				Name:      "downloads_total",
				Help:      "Completed attachment downloads by result.",
			},
			[]string{"result"},
		),
		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatattach",
				Name:      "uploads_total",
				Help:      "Completed attachment uploads by result.",
			},
			[]string{"result"},
		),
		inflight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chatattach",
				Name:      "downloads_in_flight",
				Help:      "Downloads currently outstanding.",
			},
		),
		waitersJoined: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chatattach",
				Name:      "fetch_waiters_joined_total",
				Help:      "Fetches that joined an already running download.",
			},
		),
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, common.ErrCancelled):
		return "cancelled"
	case errors.Is(err, common.ErrDecryptionFailure):
		return "decrypt_error"
	case errors.Is(err, common.ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}
