package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassTerminal},
		{"dns", ErrDNSResolutionFailed, ClassTransient},
		{"timeout", ErrConnectionTimeout, ClassTransient},
		{"socket", ErrSocketError, ClassTransient},
		{"wrapped socket", NewSocketError("dial", ErrSocketError), ClassTransient},
		{"invalid identity", ErrInvalidIdentity, ClassTerminal},
		{"schema", ErrSchemaValidation, ClassTerminal},
		{"unknown", errors.New("boom"), ClassTerminal},
		{"socket wrapping arbitrary dial failure", NewSocketError("dial", errors.New("connection refused")), ClassTransient},
		{"socket wrapping syntax error", NewSocketError("read", ErrSyntax), ClassTerminal},
		{"socket wrapping signature failure", NewSocketError("read", ErrSignatureVerificationFailed), ClassTerminal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRetryReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"dns", ErrDNSResolutionFailed, "dns_resolution_failed"},
		{"timeout", ErrConnectionTimeout, "connection_timeout"},
		{"socket", ErrSocketError, "socket_error"},
		{"identity", ErrInvalidIdentity, "invalid_identity"},
		{"schema", ErrSchemaValidation, "schema_validation"},
		{"signature", ErrSignatureVerificationFailed, "signature_verification_failed"},
		{"decryption", ErrDecryptionFailed, "decryption_failed"},
		{"unknown", errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryReason(tt.err))
		})
	}
}

func TestFieldError(t *testing.T) {
	err := NewFieldError("document.amount", "must be positive")
	assert.Equal(t, "document.amount: must be positive", err.Error())
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestTrustStoreErrors(t *testing.T) {
	conflict := NewTrustStoreConflict("abc123")
	assert.ErrorIs(t, conflict, ErrTrustStoreConflict)
	assert.Contains(t, conflict.Error(), "abc123")

	notFound := NewTrustStoreNotFound("xyz789")
	assert.ErrorIs(t, notFound, ErrTrustStoreNotFound)
	assert.Contains(t, notFound.Error(), "xyz789")
}

func TestSocketError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSocketError("dial", cause)
	assert.ErrorIs(t, err, ErrSocketError)
	assert.Contains(t, err.Error(), "dial")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSocketError_UnwrapsToItsCauseToo(t *testing.T) {
	err := NewSocketError("read", ErrSyntax)
	assert.ErrorIs(t, err, ErrSocketError)
	assert.ErrorIs(t, err, ErrSyntax)
}
