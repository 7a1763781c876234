// Package btps provides the business-facing BTPS client API, hiding
// the connector state machine, codec, and DNS resolution behind a
// small session type.
//
// The package focuses on one core operation: Dial() returns a Session
// that can Send artifacts and deliver connector events through Events.
// Trust record management
// and key generation are exposed through the btps-cli tool, not this
// package, matching the teacher's split between a thin public API and
// a separate CLI for administrative tasks.
package btps

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/btps-org/btps-core/internal/config"
	"github.com/btps-org/btps-core/internal/core/domain"
	"github.com/btps-org/btps-core/internal/core/ports"
	"github.com/btps-org/btps-core/internal/core/services"
)

// Options configures a Session beyond what a Configuration file
// already carries: the caller's key pair, since key material is never
// read from a path the library controls implicitly.
type Options struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	Passphrase []byte

	Metrics ports.MetricsReporter
	Logger  ports.Logger
}

// Session wraps a Connector with the artifact lifecycle a caller
// actually needs: connect once, send any number of artifacts, observe
// events, end gracefully.
type Session struct {
	connector *services.Connector
}

// Dial loads cfg, builds a Connector, starts its owning goroutine, and
// connects to recipient — the one call most callers need (spec §4.8
// "Session bootstrap").
func Dial(ctx context.Context, cfg *config.Configuration, recipient string, opts Options) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("btps: configuration must not be nil")
	}
	if opts.PrivateKey == nil {
		return nil, fmt.Errorf("btps: options.PrivateKey is required")
	}

	identity, err := domain.ParseIdentity(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("btps: %w", err)
	}

	encMode := domain.EncryptionNone
	switch cfg.Encryption {
	case "standard":
		encMode = domain.EncryptionStandard
	case "2fa":
		encMode = domain.Encryption2FA
	}

	connCfg := services.Config{
		Identity:            identity,
		Selector:            cfg.Selector,
		PrivateKey:          opts.PrivateKey,
		PublicKey:           opts.PublicKey,
		Host:                cfg.Host,
		Port:                cfg.Port,
		MaxRetries:          cfg.MaxRetries,
		RetryDelayMs:        cfg.RetryDelayMs,
		ConnectionTimeoutMs: cfg.ConnectionTimeoutMs,
		MaxLineBytes:        cfg.MaxLineBytes,
		AllowSelfSigned:     cfg.TLS.AllowSelfSigned,
		Encryption:          encMode,
		Passphrase:          opts.Passphrase,
	}

	connector := services.NewConnector(connCfg, opts.Metrics, opts.Logger)
	connector.Start()
	if err := connector.Connect(ctx, recipient); err != nil {
		connector.Destroy()
		return nil, err
	}
	return &Session{connector: connector}, nil
}

// Send signs (and, per configuration, encrypts) an envelope built
// around document and writes it to the wire.
func (s *Session) Send(ctx context.Context, to, from *domain.Identity, typ domain.ArtifactType, document domain.Document) error {
	if err := document.Validate(); err != nil {
		return err
	}
	env := domain.NewEnvelope(from, to, typ, document)
	return s.connector.Send(ctx, env)
}

// Events subscribes to the session's connector event stream (spec
// §4.8 "Observable events"). Call the returned cancel func when done.
func (s *Session) Events(buf int) (<-chan services.Event, func()) {
	return s.connector.Events(buf)
}

// State returns the underlying connector's current lifecycle state.
func (s *Session) State() services.State {
	return s.connector.State()
}

// End gracefully closes the session, flushing any queued writes
// first.
func (s *Session) End() error {
	return s.connector.End()
}

// Destroy immediately tears down the session, discarding any queued
// writes.
func (s *Session) Destroy() {
	s.connector.Destroy()
}
