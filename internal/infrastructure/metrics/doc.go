// Package metrics exposes expvar-published counters and gauges for the editor
// backend (history operations, flow extraction outcomes, sessions, generation
// and persistence). The server renders them on /debug/vars and, in Prometheus
// text format, on /metrics.
package metrics
