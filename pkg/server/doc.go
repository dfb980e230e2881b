// Package server provides the status HTTP server: health probes,
// Prometheus metrics, and a JSON API over cleanup jobs, policies, and
// execution history.
package server
