package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// Sign computes the SHA-256 digest of canonical and signs it with
// priv using RSA-PKCS#1-v1.5, returning the base64-encoded signature
// value (spec §4.2).
func Sign(canonical []byte, priv *rsa.PrivateKey) (string, error) {
	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify recomputes the SHA-256 digest of canonical and checks
// sigValue against it using pub.
func Verify(canonical []byte, sigValue string, pub *rsa.PublicKey) error {
	sig, err := base64.StdEncoding.DecodeString(sigValue)
	if err != nil {
		return fmt.Errorf("verify: signature not base64: %w", btpserrors.ErrSignatureVerificationFailed)
	}
	digest := sha256.Sum256(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("verify: %w", btpserrors.ErrSignatureVerificationFailed)
	}
	return nil
}

// Fingerprint returns base64(SHA-256(DER-encoded SPKI)) of pub (spec
// §4.2).
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("fingerprint: marshal SPKI: %w", err)
	}
	sum := sha256.Sum256(der)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// ParsePublicKeyPEM parses a raw DER-encoded PKIX RSA public key, the
// form returned from DNS. PEM-armored input is not accepted; use
// DecodePublicKeyPEM for that.
func ParsePublicKeyPEM(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("parse public key: not an RSA key")
	}
	return rsaPub, nil
}

// ParsePrivateKeyPKCS1 parses a DER (non-PEM-wrapped) RSA private key.
func ParsePrivateKeyPKCS1(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}
