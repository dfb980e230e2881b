package logging

import (
	"context"
	"log/slog"
	"regexp"
)

// Redactor masks email addresses in log output. Mailkeep logs reference
// mailbox records constantly; masking the local part keeps logs useful
// for debugging (the domain survives) without spilling addresses into
// log aggregation.
type Redactor struct {
	address *regexp.Regexp
}

// NewRedactor creates a redactor with the built-in address pattern.
func NewRedactor() *Redactor {
	return &Redactor{
		address: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	}
}

// RedactString masks the local part of any email addresses in s.
func (r *Redactor) RedactString(s string) string {
	return r.address.ReplaceAllString(s, "***@$1")
}

// RedactValue redacts string-kinded slog values, leaving others intact.
func (r *Redactor) RedactValue(v slog.Value) slog.Value {
	if v.Kind() == slog.KindString {
		return slog.StringValue(r.RedactString(v.String()))
	}
	return v
}

// RedactingHandler wraps a slog.Handler and masks addresses in record
// messages and string attribute values before delegating.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewRedactingHandler wraps inner with address redaction.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{inner: inner, redactor: redactor}
}

// Enabled reports whether the wrapped handler handles the level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle redacts the record and delegates to the wrapped handler.
func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(slog.Attr{Key: a.Key, Value: h.redactor.RedactValue(a.Value)})
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs returns a handler whose wrapped handler carries the
// redacted attrs.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = slog.Attr{Key: a.Key, Value: h.redactor.RedactValue(a.Value)}
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup returns a handler with the group opened on the wrapped
// handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}
