package accumulate

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	preparedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "accumulate",
			Subsystem: "signer",
			Name:      "prepared_total",
			Help:      "Transactions prepared for external signing.",
		},
	)
	submittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accumulate",
			Subsystem: "signer",
			Name:      "submitted_total",
			Help:      "Submit attempts for prepared transactions by outcome.",
		},
		[]string{"result"},
	)
	expiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "accumulate",
			Subsystem: "signer",
			Name:      "expired_total",
			Help:      "Prepared transactions dropped after their time to live.",
		},
	)
	pendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "accumulate",
			Subsystem: "signer",
			Name:      "pending",
			Help:      "Prepared transactions awaiting a signature.",
		},
	)
)

// RegisterMetrics adds the signer collectors to the default prometheus registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(preparedTotal, submittedTotal, expiredTotal, pendingGauge)
	})
}

const (
	submitResultSuccess  = "success"
	submitResultNotFound = "not_found"
	submitResultRejected = "rejected"
	submitResultError    = "error"
)
