// Package health provides component health checks and the liveness,
// readiness, and version HTTP endpoints served by the status server.
package health
