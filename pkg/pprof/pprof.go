// Package pprof collects self-profiling data for the mining service: CPU,
// heap, and goroutine snapshots taken either on a timer (file mode, for the
// `mine` CLI's batch runs) or on demand over HTTP (http mode, for the
// long-running dashboard server).
//
// cmd/cfiminer/cmd wires this package directly: its --pprof flags build a
// Config, NewCollector constructs a Collector scoped to one cobra command
// invocation, and PersistentPreRunE/PersistentPostRunE call Start/Stop so
// the collector's lifetime matches the command's.
package pprof
