/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertMetricValue asserts that the collector exposes exactly one counter or gauge sample with the wanted value.
// The collector is registered in a pedantic registry, so inconsistent descriptors fail the assertion too.
// Vectors are accepted as long as at most one label combination was observed,
// a vector without observations counts as zero.
func AssertMetricValue(t assert.TestingT, c prometheus.Collector, want float64) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	reg := prometheus.NewPedanticRegistry()
	if !assert.NoError(t, reg.Register(c)) {
		return false
	}
	families, err := reg.Gather()
	if !assert.NoError(t, err) {
		return false
	}
	if len(families) == 0 {
		return assert.Zero(t, want, "no samples collected")
	}
	if !assert.Len(t, families, 1) || !assert.Len(t, families[0].GetMetric(), 1) {
		return false
	}
	m := families[0].GetMetric()[0]
	switch {
	case m.GetCounter() != nil:
		return assert.Equal(t, want, m.GetCounter().GetValue(), families[0].GetName())
	case m.GetGauge() != nil:
		return assert.Equal(t, want, m.GetGauge().GetValue(), families[0].GetName())
	default:
		return assert.Fail(t, "metric is neither a counter nor a gauge", families[0].GetName())
	}
}

// RequireMetricValue calls AssertMetricValue and fails the test immediately in case of error.
func RequireMetricValue(t require.TestingT, c prometheus.Collector, want float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertMetricValue(t, c, want) {
		return
	}
	t.FailNow()
}
