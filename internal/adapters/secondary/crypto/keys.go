package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// DefaultKeyBits is the RSA modulus size used for newly generated
// BTPS identity keys (spec §4.2 assumes RSA-2048 or stronger).
const DefaultKeyBits = 2048

// GenerateKeyPair returns a fresh RSA key pair of bits size.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = DefaultKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return key, nil
}

// EncodePrivateKeyPEM renders priv as a PKCS#1 "RSA PRIVATE KEY" PEM
// block.
func EncodePrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}
	return pem.EncodeToMemory(block)
}

// EncodePublicKeyPEM renders pub as a PKIX "PUBLIC KEY" PEM block,
// matching the encoding BTPS DNS TXT records publish (spec §4.1).
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// DecodePrivateKeyPEM parses a PKCS#1 "RSA PRIVATE KEY" PEM block.
func DecodePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("decode private key: no PEM block found")
	}
	return ParsePrivateKeyPKCS1(block.Bytes)
}

// DecodePublicKeyPEM parses a PKIX "PUBLIC KEY" PEM block.
func DecodePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("decode public key: no PEM block found")
	}
	return ParsePublicKeyPEM(block.Bytes)
}

// LoadPrivateKeyFile reads and decodes an RSA private key from a PEM
// file on disk.
func LoadPrivateKeyFile(path string) (*rsa.PrivateKey, error) {
	//nolint:gosec // path is operator-supplied configuration, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load private key %s: %w", path, err)
	}
	return DecodePrivateKeyPEM(data)
}

// LoadPublicKeyFile reads and decodes an RSA public key from a PEM
// file on disk.
func LoadPublicKeyFile(path string) (*rsa.PublicKey, error) {
	//nolint:gosec // path is operator-supplied configuration, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load public key %s: %w", path, err)
	}
	return DecodePublicKeyPEM(data)
}
