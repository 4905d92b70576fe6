package remotesync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annotator_sync_requests_total",
		Help: "Remote requests issued by the sync adapter, by operation and result",
	}, []string{"op", "result"})

	syncRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annotator_sync_rollbacks_total",
		Help: "Optimistic mutations reverted after a failed remote request",
	}, []string{"op"})

	syncInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "annotator_sync_requests_in_flight",
		Help: "Remote requests queued or running",
	})

	syncLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annotator_sync_loads_total",
		Help: "Initial loads by the source the annotation set came from",
	}, []string{"source"})
)

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	syncRequests.WithLabelValues(op, result).Inc()
}
