// Package logging configures the process-wide slog logger: level and
// format parsing, output selection, address redaction, and helpers for
// threading job and policy identifiers through context.
package logging
