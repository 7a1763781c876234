// Package codec composes and decomposes ArtifactEnvelopes: signing and
// optional encryption on the outbound path, verification and optional
// decryption on the inbound path (spec §4.3). Both exported operations
// are pure functions of their inputs and the DNS view observed during
// the call; they hold no state of their own.
package codec

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/btps-org/btps-core/internal/adapters/secondary/crypto"
	"github.com/btps-org/btps-core/internal/core/domain"
	"github.com/btps-org/btps-core/internal/core/ports"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// SignerConfig carries the sender's identity and keys needed to sign
// (and optionally encrypt) an outbound envelope.
type SignerConfig struct {
	Identity   *domain.Identity
	Selector   string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey

	// Encryption is EncryptionNone unless the caller wants the
	// document hidden from anyone but the recipient.
	Encryption domain.EncryptionMode
	// Passphrase is required when Encryption == Encryption2FA.
	Passphrase []byte
}

// Codec composes/decomposes envelopes against a DNS resolver.
type Codec struct {
	resolver ports.Resolver
}

// New returns a Codec backed by resolver.
func New(resolver ports.Resolver) *Codec {
	return &Codec{resolver: resolver}
}

// SignEncrypt validates identities, then — if cfg.Encryption !=
// EncryptionNone — resolves the recipient's key and encrypts the
// document, and only then canonicalizes and signs the envelope, so the
// signature covers the envelope's actual on-wire state (spec §4.3):
// VerifyDecrypt recomputes the identical canonical form from the
// as-received envelope, ciphertext document included, so the two sides
// must sign/verify the same bytes.
func (c *Codec) SignEncrypt(ctx context.Context, env *domain.ArtifactEnvelope, cfg SignerConfig) (*domain.ArtifactEnvelope, error) {
	if _, err := domain.ParseIdentity(env.From); err != nil {
		return nil, err
	}
	to, err := domain.ParseIdentity(env.To)
	if err != nil {
		return nil, err
	}

	fingerprint, err := crypto.Fingerprint(cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	signed := *env
	signed.Signature = nil
	signed.Encryption = nil

	if cfg.Encryption != domain.EncryptionNone && cfg.Encryption != "" {
		plaintext, err := json.Marshal(signed.Document)
		if err != nil {
			return nil, fmt.Errorf("codec: marshal document: %w", err)
		}

		host, err := c.resolver.ResolveHost(ctx, to.Domain())
		if err != nil {
			return nil, err
		}
		pemBytes, err := c.resolver.ResolveKey(ctx, to, host.Selector, ports.KeyFieldPEM)
		if err != nil {
			return nil, err
		}
		recipientPub, err := crypto.ParsePublicKeyPEM([]byte(pemBytes))
		if err != nil {
			return nil, err
		}

		var enc *crypto.EncryptedDocument
		switch cfg.Encryption {
		case domain.EncryptionStandard:
			enc, err = crypto.EncryptStandard(plaintext, recipientPub)
		case domain.Encryption2FA:
			if len(cfg.Passphrase) == 0 {
				return nil, fmt.Errorf("codec: 2faEncrypt requires a passphrase")
			}
			enc, err = crypto.Encrypt2FA(plaintext, recipientPub, cfg.Passphrase, []byte(to.String()))
		default:
			return nil, fmt.Errorf("codec: unknown encryption mode %q", cfg.Encryption)
		}
		if err != nil {
			return nil, err
		}

		signed.Document = enc.Ciphertext
		signed.Encryption = &domain.Encryption{
			Algorithm:    "aes-256-cbc",
			EncryptedKey: enc.EncryptedKey,
			IV:           enc.IV,
			Type:         cfg.Encryption,
		}
	}

	signed.SignedBy = env.From
	signed.Selector = cfg.Selector

	canonicalMap, err := crypto.EnvelopeToMap(&signed)
	if err != nil {
		return nil, err
	}
	canonical, err := crypto.Canonicalize(canonicalMap)
	if err != nil {
		return nil, err
	}
	sigValue, err := crypto.Sign(canonical, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	signed.Signature = &domain.Signature{
		Algorithm:   "sha256",
		Value:       sigValue,
		Fingerprint: fingerprint,
	}

	return &signed, nil
}

// VerifierConfig carries the material needed to verify and optionally
// decrypt an inbound envelope.
type VerifierConfig struct {
	// PrivateKey is required only when env.Encryption is present.
	PrivateKey *rsa.PrivateKey
	// Passphrase is required only when env.Encryption.Type ==
	// Encryption2FA.
	Passphrase []byte
}

// VerifyDecrypt resolves the sender's key via DNS, verifies the
// envelope's signature, and — if Encryption is present — decrypts the
// document, returning the raw plaintext JSON bytes of the document
// (spec §4.3). Callers then json.Unmarshal into the Document
// implementation matching env.Type (see domain.NewDocument).
func (c *Codec) VerifyDecrypt(ctx context.Context, env *domain.ArtifactEnvelope, cfg VerifierConfig) ([]byte, error) {
	if env.Signature == nil || env.SignedBy == "" || env.Selector == "" {
		return nil, fmt.Errorf("codec: envelope missing signature: %w", btpserrors.ErrSignatureVerificationFailed)
	}
	from, err := domain.ParseIdentity(env.SignedBy)
	if err != nil {
		return nil, err
	}

	pemBytes, err := c.resolver.ResolveKey(ctx, from, env.Selector, ports.KeyFieldPEM)
	if err != nil {
		return nil, err
	}
	senderPub, err := crypto.ParsePublicKeyPEM([]byte(pemBytes))
	if err != nil {
		return nil, err
	}

	computedFingerprint, err := crypto.Fingerprint(senderPub)
	if err != nil {
		return nil, err
	}
	if computedFingerprint != env.Signature.Fingerprint {
		return nil, fmt.Errorf("codec: fingerprint mismatch: %w", btpserrors.ErrSignatureVerificationFailed)
	}

	stripped := *env
	sig := stripped.Signature
	stripped.Signature = nil
	canonicalMap, err := crypto.EnvelopeToMap(&stripped)
	if err != nil {
		return nil, err
	}
	canonical, err := crypto.Canonicalize(canonicalMap)
	if err != nil {
		return nil, err
	}
	if err := crypto.Verify(canonical, sig.Value, senderPub); err != nil {
		return nil, err
	}

	if env.Encryption == nil {
		return json.Marshal(env.Document)
	}

	cipherStr, ok := env.CipherDocument()
	if !ok {
		return nil, fmt.Errorf("codec: encrypted envelope document is not a string: %w", btpserrors.ErrDecryptionFailed)
	}
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("codec: decryption requires a private key: %w", btpserrors.ErrDecryptionFailed)
	}
	enc := &crypto.EncryptedDocument{
		Ciphertext:   cipherStr,
		EncryptedKey: env.Encryption.EncryptedKey,
		IV:           env.Encryption.IV,
	}

	switch env.Encryption.Type {
	case domain.EncryptionStandard:
		return crypto.DecryptStandard(enc, cfg.PrivateKey)
	case domain.Encryption2FA:
		if len(cfg.Passphrase) == 0 {
			return nil, fmt.Errorf("codec: 2faEncrypt requires a passphrase: %w", btpserrors.ErrDecryptionFailed)
		}
		return crypto.Decrypt2FA(enc, cfg.PrivateKey, cfg.Passphrase, []byte(env.To))
	default:
		return nil, fmt.Errorf("codec: unknown encryption mode %q", env.Encryption.Type)
	}
}
