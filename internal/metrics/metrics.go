// Package metrics exposes Prometheus collectors for the discovery scanner.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal          *prometheus.CounterVec
	probeDurationSeconds *prometheus.HistogramVec
	batchesTotal         prometheus.Counter
	scansTotal           *prometheus.CounterVec
	listingCandidates    prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "videoscan_probes_total",
				Help: "Ownership probes issued, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		probeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "videoscan_probe_duration_seconds",
				Help:    "Histogram of probe latencies, labeled by outcome.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"outcome"},
		)

		batchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "videoscan_batches_total",
				Help: "Probe batches executed.",
			},
		)

		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "videoscan_scans_total",
				Help: "Discovery runs, labeled by result.",
			},
			[]string{"result"},
		)

		listingCandidates = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "videoscan_listing_candidates_total",
				Help: "Candidate IDs extracted from the listing page.",
			},
		)
	})
}

// ObserveProbe records one probe by outcome.
func ObserveProbe(outcome string, d time.Duration) {
	Init()
	probesTotal.WithLabelValues(outcome).Inc()
	probeDurationSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncBatch records one resolved batch.
func IncBatch() {
	Init()
	batchesTotal.Inc()
}

// IncScan records one discovery run by result (found, none_found, error).
func IncScan(result string) {
	Init()
	scansTotal.WithLabelValues(result).Inc()
}

// AddListingCandidates records candidates seen on the listing page.
func AddListingCandidates(n int) {
	Init()
	listingCandidates.Add(float64(n))
}
