package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// ProtocolVersion is the current literal wire version (spec §3).
const ProtocolVersion = "1.0.0"

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// ArtifactType is the closed discriminator for ArtifactEnvelope.Type.
type ArtifactType string

// The closed set of artifact type discriminators (spec §3).
const (
	TypeTrustRequest     ArtifactType = "TRUST_REQ"
	TypeTrustResponse    ArtifactType = "TRUST_RES"
	TypeInvoice          ArtifactType = "BTP_INVOICE"
	TypeAuthRequest      ArtifactType = "BTP_AUTH_REQ"
	TypeAuthResponse     ArtifactType = "BTP_AUTH_RES"
	TypeQuery            ArtifactType = "BTP_QUERY"
	TypeDeliveryFailure  ArtifactType = "BTP_DELIVERY_FAILURE"
	TypeResponse         ArtifactType = "btps_response"
	TypeError            ArtifactType = "btps_error"
)

// EncryptionMode selects the encryption envelope applied to a
// document, per spec §4.2.
type EncryptionMode string

const (
	EncryptionNone       EncryptionMode = "none"
	EncryptionStandard   EncryptionMode = "standardEncrypt"
	Encryption2FA        EncryptionMode = "2faEncrypt"
)

// Signature is the envelope's detached signature block.
type Signature struct {
	Algorithm   string `json:"algorithm"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"`
}

// Encryption is the envelope's hybrid-encryption metadata.
type Encryption struct {
	Algorithm    string         `json:"algorithm"`
	EncryptedKey string         `json:"encryptedKey"`
	IV           string         `json:"iv"`
	Type         EncryptionMode `json:"type"`
}

// ArtifactEnvelope is every wire unit exchanged between BTPS peers
// (spec §3). Document is either a Document value (plaintext) or a
// base64 ciphertext string once Encryption is applied; callers use
// CipherDocument to read the ciphertext form safely.
type ArtifactEnvelope struct {
	Version    string       `json:"version" validate:"required,btpversion"`
	ID         string       `json:"id" validate:"required"`
	From       string       `json:"from" validate:"required,identity"`
	To         string       `json:"to" validate:"required,identity"`
	Type       ArtifactType `json:"type" validate:"required,oneof=TRUST_REQ TRUST_RES BTP_INVOICE BTP_AUTH_REQ BTP_AUTH_RES BTP_QUERY BTP_DELIVERY_FAILURE btps_response btps_error"`
	IssuedAt   string       `json:"issuedAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Document   any          `json:"document"`
	Signature  *Signature   `json:"signature,omitempty"`
	Encryption *Encryption  `json:"encryption,omitempty"`
	SignedBy   string       `json:"signedBy,omitempty"`
	Selector   string       `json:"selector,omitempty"`
}

// NewEnvelope builds an envelope with a fresh id, the current protocol
// version, and issuedAt set to now, ready for signing.
func NewEnvelope(from, to *Identity, typ ArtifactType, document any) *ArtifactEnvelope {
	return &ArtifactEnvelope{
		Version:  ProtocolVersion,
		ID:       uuid.NewString(),
		From:     from.String(),
		To:       to.String(),
		Type:     typ,
		IssuedAt: time.Now().UTC().Format(time.RFC3339),
		Document: document,
	}
}

// Validate checks the field-level invariants of spec §3 (version
// format, identity syntax, artifact type, timestamp format) via the
// registered `validate` struct tags, then the cross-field invariants
// a tag can't express: encryption/document coupling and signature
// completeness.
func (e *ArtifactEnvelope) Validate() error {
	if err := structValidator.Struct(e); err != nil {
		return fmt.Errorf("envelope: %w: %w", btpserrors.ErrSchemaValidation, err)
	}
	if e.Encryption != nil {
		if _, ok := e.Document.(string); !ok {
			return btpserrors.NewFieldError("document", "must be a ciphertext string when encryption is present")
		}
	}
	if e.Signature != nil {
		if e.SignedBy == "" || e.Selector == "" {
			return btpserrors.NewFieldError("signedBy/selector", "required when signature is present")
		}
	}
	return nil
}

// CipherDocument returns the opaque ciphertext payload, valid only
// when Encryption is non-nil.
func (e *ArtifactEnvelope) CipherDocument() (string, bool) {
	s, ok := e.Document.(string)
	return s, ok && e.Encryption != nil
}
