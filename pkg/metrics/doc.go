/*
Package metrics defines and registers the store's Prometheus metrics and
exposes them via an HTTP handler for scraping.

Unlike a poll-based collector, every gauge here is updated inline by
pkg/memdb.Store as part of the same lock it already holds for a mutation
-- there is nothing to periodically recompute, since frontier size,
branch size, and tracked-document count are all cheap to read off the
structures that just changed.

	metrics.OperationsIngestedTotal.Inc()
	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.ViewApplyDuration)

Handler returns the standard promhttp handler for mounting at /metrics.
*/
package metrics
