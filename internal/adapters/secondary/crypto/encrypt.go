package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

const (
	aesKeySize        = 32 // AES-256
	ivSize            = 16
	pbkdf2Iterations  = 100_000
)

// EncryptedDocument is the result of hybrid-encrypting a document:
// ready to populate ArtifactEnvelope.Document/Encryption.
type EncryptedDocument struct {
	Ciphertext   string // base64, becomes envelope.Document
	EncryptedKey string // base64(RSA-wrapped AES key)
	IV           string // base64
}

// EncryptStandard implements the "standardEncrypt" mode of spec §4.2:
// a fresh random AES-256 key and IV encrypt plaintext under AES-256-CBC
// with PKCS#7 padding; the AES key is wrapped with RSA-OAEP under the
// recipient's public key.
func EncryptStandard(plaintext []byte, recipientPub *rsa.PublicKey) (*EncryptedDocument, error) {
	key := make([]byte, aesKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("encrypt: random key: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("encrypt: random iv: %w", err)
	}

	ciphertext, err := aesCBCEncrypt(key, iv, plaintext)
	if err != nil {
		return nil, err
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipientPub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypt: rsa-oaep wrap: %w", err)
	}

	return &EncryptedDocument{
		Ciphertext:   base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedKey: base64.StdEncoding.EncodeToString(wrapped),
		IV:           base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Encrypt2FA differs from EncryptStandard only in how the AES key is
// wrapped: a second factor (passphrase) is stretched via
// PBKDF2-SHA256 (100k iterations) and XORed with the random AES key
// before RSA-OAEP wrapping (spec §4.2).
func Encrypt2FA(plaintext []byte, recipientPub *rsa.PublicKey, passphrase, salt []byte) (*EncryptedDocument, error) {
	key := make([]byte, aesKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("encrypt: random key: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("encrypt: random iv: %w", err)
	}

	ciphertext, err := aesCBCEncrypt(key, iv, plaintext)
	if err != nil {
		return nil, err
	}

	derived := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, aesKeySize, sha256.New)
	combined := xorBytes(key, derived)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipientPub, combined, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypt: rsa-oaep wrap: %w", err)
	}

	return &EncryptedDocument{
		Ciphertext:   base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedKey: base64.StdEncoding.EncodeToString(wrapped),
		IV:           base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// DecryptStandard reverses EncryptStandard.
func DecryptStandard(enc *EncryptedDocument, priv *rsa.PrivateKey) ([]byte, error) {
	key, iv, ciphertext, err := unwrapCommon(enc, priv)
	if err != nil {
		return nil, err
	}
	wrappedKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, key, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: rsa-oaep unwrap: %w: %w", btpserrors.ErrDecryptionFailed, err)
	}
	return aesCBCDecrypt(wrappedKey, iv, ciphertext)
}

// Decrypt2FA reverses Encrypt2FA: unwrap the RSA layer, then XOR out
// the PBKDF2-derived stretch of passphrase to recover the AES key.
func Decrypt2FA(enc *EncryptedDocument, priv *rsa.PrivateKey, passphrase, salt []byte) ([]byte, error) {
	_, iv, ciphertext, err := unwrapCommon(enc, priv)
	if err != nil {
		return nil, err
	}
	wrappedRaw, err := base64.StdEncoding.DecodeString(enc.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt: encryptedKey not base64: %w", btpserrors.ErrDecryptionFailed)
	}
	combined, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedRaw, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: rsa-oaep unwrap: %w: %w", btpserrors.ErrDecryptionFailed, err)
	}
	derived := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, aesKeySize, sha256.New)
	key := xorBytes(combined, derived)
	return aesCBCDecrypt(key, iv, ciphertext)
}

// unwrapCommon decodes the base64 fields shared by both decrypt
// paths; the returned "key" slot is unused by the 2FA path, which
// re-derives the wrapped key itself.
func unwrapCommon(enc *EncryptedDocument, priv *rsa.PrivateKey) (key, iv, ciphertext []byte, err error) {
	iv, err = base64.StdEncoding.DecodeString(enc.IV)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decrypt: iv not base64: %w", btpserrors.ErrDecryptionFailed)
	}
	ciphertext, err = base64.StdEncoding.DecodeString(enc.Ciphertext)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decrypt: ciphertext not base64: %w", btpserrors.ErrDecryptionFailed)
	}
	key, err = base64.StdEncoding.DecodeString(enc.EncryptedKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decrypt: encryptedKey not base64: %w", btpserrors.ErrDecryptionFailed)
	}
	return key, iv, ciphertext, nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i%len(b)]
	}
	return out
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: aes cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("decrypt: aes cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("decrypt: invalid ciphertext length: %w", btpserrors.ErrDecryptionFailed)
	}
	plainPadded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainPadded, ciphertext)
	return pkcs7Unpad(plainPadded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decrypt: empty plaintext: %w", btpserrors.ErrDecryptionFailed)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("decrypt: bad padding: %w", btpserrors.ErrDecryptionFailed)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("decrypt: bad padding: %w", btpserrors.ErrDecryptionFailed)
		}
	}
	return data[:len(data)-padLen], nil
}
