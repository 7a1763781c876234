// Package errors provides the BTPS error taxonomy shared by every layer
// of the core: identity parsing, DNS resolution, crypto, schema
// validation, and trust-store persistence.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in spec §7. Callers should compare
// with errors.Is, not string matching.
var (
	ErrInvalidIdentity            = errors.New("invalid identity")
	ErrInvalidHostname             = errors.New("invalid hostname")
	ErrUnsupportedProtocol         = errors.New("unsupported protocol")
	ErrDNSResolutionFailed         = errors.New("dns resolution failed")
	ErrConnectionTimeout           = errors.New("connection timeout")
	ErrSocketError                 = errors.New("socket error")
	ErrSyntax                      = errors.New("syntax error")
	ErrSignatureVerificationFailed = errors.New("signature verification failed")
	ErrDecryptionFailed            = errors.New("decryption failed")
	ErrSchemaValidation            = errors.New("schema validation error")
	ErrTrustStoreConflict          = errors.New("trust store conflict")
	ErrTrustStoreNotFound          = errors.New("trust store record not found")
	ErrDestroyed                   = errors.New("connector destroyed")
)

// Class classifies an error as retryable or terminal per spec §4.6/§7.
type Class int

const (
	// ClassTerminal errors must never be retried.
	ClassTerminal Class = iota
	// ClassTransient errors may be retried subject to policy.
	ClassTransient
)

// Classify returns whether err belongs to a transient (retryable) or
// terminal error class. Unknown errors are treated as terminal: an
// implementation should only retry errors it recognizes as safe to
// retry.
func Classify(err error) Class {
	if err == nil {
		return ClassTerminal
	}
	var se *SocketError
	if errors.As(err, &se) {
		if isTerminalSocketCause(se.Cause) {
			return ClassTerminal
		}
		return ClassTransient
	}
	switch {
	case errors.Is(err, ErrDNSResolutionFailed),
		errors.Is(err, ErrConnectionTimeout),
		errors.Is(err, ErrSocketError):
		return ClassTransient
	default:
		return ClassTerminal
	}
}

// isTerminalSocketCause reports whether cause is one of the terminal
// classes spec §4.6 calls out as the exception to "SocketError is
// transient": a socket failure whose underlying cause is itself
// terminal (bad identity, malformed message, failed verification, ...)
// must not be retried just because it arrived wrapped as a socket
// error.
func isTerminalSocketCause(cause error) bool {
	if cause == nil {
		return false
	}
	switch {
	case errors.Is(cause, ErrInvalidIdentity),
		errors.Is(cause, ErrInvalidHostname),
		errors.Is(cause, ErrUnsupportedProtocol),
		errors.Is(cause, ErrSyntax),
		errors.Is(cause, ErrSignatureVerificationFailed),
		errors.Is(cause, ErrDecryptionFailed),
		errors.Is(cause, ErrSchemaValidation),
		errors.Is(cause, ErrTrustStoreConflict),
		errors.Is(cause, ErrTrustStoreNotFound),
		errors.Is(cause, ErrDestroyed):
		return true
	}
	return false
}

// RetryReason returns a short, bounded label identifying err's
// sentinel class, suitable as a metrics label (unlike err.Error(),
// which is unbounded cardinality).
func RetryReason(err error) string {
	switch {
	case errors.Is(err, ErrDNSResolutionFailed):
		return "dns_resolution_failed"
	case errors.Is(err, ErrConnectionTimeout):
		return "connection_timeout"
	case errors.Is(err, ErrSocketError):
		return "socket_error"
	case errors.Is(err, ErrInvalidIdentity):
		return "invalid_identity"
	case errors.Is(err, ErrSchemaValidation):
		return "schema_validation"
	case errors.Is(err, ErrSignatureVerificationFailed):
		return "signature_verification_failed"
	case errors.Is(err, ErrDecryptionFailed):
		return "decryption_failed"
	default:
		return "other"
	}
}

// FieldError reports a schema validation failure at a specific field
// path within an artifact, e.g. "document.lineItems[0].unitPrice".
type FieldError struct {
	Path    string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrSchemaValidation
}

// NewFieldError builds a FieldError for the given path.
func NewFieldError(path, message string) *FieldError {
	return &FieldError{Path: path, Message: message}
}

// TrustStoreError carries the trust record id involved in a trust
// store failure (AlreadyExists / NotFound).
type TrustStoreError struct {
	ID    string
	Cause error
}

func (e *TrustStoreError) Error() string {
	return fmt.Sprintf("trust store: id %q: %s", e.ID, e.Cause)
}

func (e *TrustStoreError) Unwrap() error {
	return e.Cause
}

// NewTrustStoreConflict reports that id already exists.
func NewTrustStoreConflict(id string) error {
	return &TrustStoreError{ID: id, Cause: ErrTrustStoreConflict}
}

// NewTrustStoreNotFound reports that id does not exist.
func NewTrustStoreNotFound(id string) error {
	return &TrustStoreError{ID: id, Cause: ErrTrustStoreNotFound}
}

// SocketError wraps a low-level transport failure, preserving whether
// the originating message matches one of the terminal classes (a
// destroyed connector, syntax error, etc.) described in spec §4.6.
type SocketError struct {
	Op    string
	Cause error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("socket %s: %s", e.Op, e.Cause)
}

// Unwrap exposes both the ErrSocketError sentinel and the wrapped
// cause, so errors.Is(err, ErrSocketError) keeps matching while
// errors.Is(err, <cause's own sentinel>) also matches — the pairing
// Classify relies on to reclassify a socket error whose cause is
// itself terminal.
func (e *SocketError) Unwrap() []error {
	return []error{ErrSocketError, e.Cause}
}

// NewSocketError wraps cause as a socket error for op; Classify treats
// it as transient unless cause is itself one of the terminal classes.
func NewSocketError(op string, cause error) error {
	return &SocketError{Op: op, Cause: cause}
}
