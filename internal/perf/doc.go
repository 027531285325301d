// Package perf holds latency budgets and benchmarks for the booking and
// document number hot paths.
package perf
