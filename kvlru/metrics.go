/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package kvlru

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) cache is used.
type MetricsCollector interface {
	// SetAmount sets the total number of entries in the cache.
	SetAmount(int)

	// IncHits increments the total number of successfully found keys in the cache.
	IncHits()

	// IncMisses increments the total number of not found keys in the cache.
	IncMisses()

	// AddEvictions increments the total number of evicted entries.
	AddEvictions(int)

	// IncStoreErrors increments the total number of failed store calls.
	IncStoreErrors()

	// IncInconsistencies increments the total number of operations failed with ErrInconsistentState.
	IncInconsistencies()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents a Prometheus metrics for the cache.
type PrometheusMetrics struct {
	EntriesAmount        *prometheus.GaugeVec
	HitsTotal            *prometheus.CounterVec
	MissesTotal          *prometheus.CounterVec
	EvictionsTotal       *prometheus.CounterVec
	StoreErrorsTotal     *prometheus.CounterVec
	InconsistenciesTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	newCounterVec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        name,
				Help:        help,
				ConstLabels: opts.ConstLabels,
			},
			opts.CurriedLabelNames,
		)
	}

	entriesAmount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "kvlru_entries_amount",
			Help:        "Total number of entries in the cache (as of the last operation of this process).",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		EntriesAmount:        entriesAmount,
		HitsTotal:            newCounterVec("kvlru_hits_total", "Number of successfully found keys in the cache."),
		MissesTotal:          newCounterVec("kvlru_misses_total", "Number of not found keys in cache."),
		EvictionsTotal:       newCounterVec("kvlru_evictions_total", "Number of evicted entries."),
		StoreErrorsTotal:     newCounterVec("kvlru_store_errors_total", "Number of failed calls to the backing store."),
		InconsistenciesTotal: newCounterVec("kvlru_inconsistencies_total", "Number of operations which found the stored list broken."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount:        pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:            pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:          pm.MissesTotal.MustCurryWith(labels),
		EvictionsTotal:       pm.EvictionsTotal.MustCurryWith(labels),
		StoreErrorsTotal:     pm.StoreErrorsTotal.MustCurryWith(labels),
		InconsistenciesTotal: pm.InconsistenciesTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pm.EntriesAmount,
		pm.HitsTotal,
		pm.MissesTotal,
		pm.EvictionsTotal,
		pm.StoreErrorsTotal,
		pm.InconsistenciesTotal,
	}
}

// SetAmount sets the total number of entries in the cache.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// IncHits increments the total number of successfully found keys in the cache.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.With(nil).Inc()
}

// IncMisses increments the total number of not found keys in the cache.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// AddEvictions increments the total number of evicted entries.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.With(nil).Add(float64(n))
}

// IncStoreErrors increments the total number of failed store calls.
func (pm *PrometheusMetrics) IncStoreErrors() {
	pm.StoreErrorsTotal.With(nil).Inc()
}

// IncInconsistencies increments the total number of operations failed with ErrInconsistentState.
func (pm *PrometheusMetrics) IncInconsistencies() {
	pm.InconsistenciesTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)       {}
func (disabledMetrics) IncHits()            {}
func (disabledMetrics) IncMisses()          {}
func (disabledMetrics) AddEvictions(int)    {}
func (disabledMetrics) IncStoreErrors()     {}
func (disabledMetrics) IncInconsistencies() {}
