// Package ports defines the interfaces the core services depend on,
// implemented by adapters in internal/adapters.
package ports

import (
	"context"

	"github.com/btps-org/btps-core/internal/core/domain"
)

// HostRecord is the parsed form of a domain's `_btps.<domain>` TXT
// record (spec §4.1).
type HostRecord struct {
	Host     string
	Selector string
}

// KeyField selects which field of a selector TXT record to return.
type KeyField string

const (
	KeyFieldKey     KeyField = "key"
	KeyFieldPEM     KeyField = "pem"
	KeyFieldVersion KeyField = "version"
)

// Resolver resolves BTPS DNS records (spec §4.1).
type Resolver interface {
	ResolveHost(ctx context.Context, domain string) (*HostRecord, error)
	ResolveKey(ctx context.Context, id *domain.Identity, selector string, which KeyField) (string, error)
}

// TrustStore is the abstract persistent trust record contract (spec
// §4.5).
type TrustStore interface {
	GetByID(id string) (*domain.TrustRecord, bool, error)
	Create(rec domain.TrustRecord, id string) (*domain.TrustRecord, error)
	Update(id string, patch map[string]any) (*domain.TrustRecord, error)
	Delete(id string) error
	GetAll(receiverID string) ([]domain.TrustRecord, error)
	FlushNow() error
	FlushAndReload() error
	Close() error
}

// Logger is a structured logging port, matching the teacher's
// ports.Logger shape (attr-pair API over an interface, so adapters can
// swap slog for anything else without touching call sites).
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...LogAttribute)
	Info(ctx context.Context, msg string, attrs ...LogAttribute)
	Warn(ctx context.Context, msg string, attrs ...LogAttribute)
	Error(ctx context.Context, msg string, attrs ...LogAttribute)
	WithAttrs(attrs ...LogAttribute) Logger
}

// LogAttribute is a single structured logging key-value pair.
type LogAttribute struct {
	Key   string
	Value any
}

// Attr is a convenience constructor for LogAttribute.
func Attr(key string, value any) LogAttribute { return LogAttribute{Key: key, Value: value} }

// MetricsReporter is the narrow metrics surface core services depend
// on; concrete adapters (e.g. Prometheus) implement it.
type MetricsReporter interface {
	RecordRetryAttempt(reason string)
	RecordSend(artifactType string, ok bool)
	RecordTrustStoreFlush(ok bool)
}
