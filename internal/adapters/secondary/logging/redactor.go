// Package logging provides a slog-backed ports.Logger adapter that
// redacts private keys, passphrases, and PEM material before it
// reaches any handler.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Redacted is the placeholder value substituted for sensitive fields.
const Redacted = "[REDACTED]"

// RedactorHandler wraps an slog.Handler, scrubbing attributes whose key
// or string value looks like key material before it is ever handed to
// the wrapped handler (spec §7: private keys and passphrases must
// never appear in logs).
type RedactorHandler struct {
	handler   slog.Handler
	sensitive map[string]bool
}

// NewRedactorHandler wraps handler with BTPS's sensitive-field list.
func NewRedactorHandler(handler slog.Handler) *RedactorHandler {
	return &RedactorHandler{
		handler: handler,
		sensitive: map[string]bool{
			"privatekey":  true,
			"private_key": true,
			"private-key": true,
			"passphrase":  true,
			"password":    true,
			"secret":      true,
			"encryptedkey": true,
			"signature":   true,
			"token":       true,
		},
	}
}

func (h *RedactorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactorHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.Record{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		PC:      record.PC,
	}
	record.Attrs(func(attr slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(attr))
		return true
	})
	if err := h.handler.Handle(ctx, redacted); err != nil {
		return fmt.Errorf("redactor handle: %w", err)
	}
	return nil
}

func (h *RedactorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.redactAttr(a)
	}
	return &RedactorHandler{handler: h.handler.WithAttrs(out), sensitive: h.sensitive}
}

func (h *RedactorHandler) WithGroup(name string) slog.Handler {
	return &RedactorHandler{handler: h.handler.WithGroup(name), sensitive: h.sensitive}
}

func (h *RedactorHandler) redactAttr(attr slog.Attr) slog.Attr {
	if h.isSensitive(attr.Key) {
		return slog.String(attr.Key, Redacted)
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = h.redactAttr(ga)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(out...)}
	}
	if attr.Value.Kind() == slog.KindString {
		return slog.Attr{Key: attr.Key, Value: slog.StringValue(h.redactString(attr.Value.String()))}
	}
	return attr
}

func (h *RedactorHandler) isSensitive(field string) bool {
	lower := strings.ToLower(field)
	if h.sensitive[lower] {
		return true
	}
	for s := range h.sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func (h *RedactorHandler) redactString(value string) string {
	if strings.Contains(value, "BEGIN RSA PRIVATE KEY") || strings.Contains(value, "BEGIN PRIVATE KEY") {
		return Redacted
	}
	return value
}
