package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	submissionPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "carbon_tracker",
		Subsystem: "persistence",
		Name:      "last_submission_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent submission persisted to Postgres.",
	})
	co2RecordedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "engine",
		Name:      "co2_recorded_kg_total",
		Help:      "Cumulative CO2e kilograms recorded across all submissions.",
	})
	badgeAwardedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "engine",
		Name:      "badges_awarded_total",
		Help:      "Number of badges awarded, labeled by tier.",
	}, []string{"tier"})
)

func init() {
	prometheus.MustRegister(submissionPersistGauge, co2RecordedCounter, badgeAwardedCounter)
}

// RecordSubmissionPersisted updates the persistence watermark and CO2e counter.
func RecordSubmissionPersisted(ts time.Time, totalCO2Kg float64) {
	if !ts.IsZero() {
		submissionPersistGauge.Set(float64(ts.Unix()))
	}
	if totalCO2Kg > 0 {
		co2RecordedCounter.Add(totalCO2Kg)
	}
}

// RecordBadgeAwarded increments the per-tier badge counter.
func RecordBadgeAwarded(tier string) {
	badgeAwardedCounter.WithLabelValues(tier).Inc()
}
