// Package secrets encrypts third-party credentials before they are
// stored. Ciphertexts are AES-256-GCM, base64 encoded, with the nonce
// prepended.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Box encrypts and decrypts short secrets with a fixed key.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 256-bit key from the configured key material. An
// empty key is rejected so a misconfigured deployment fails at startup
// rather than storing credentials under a predictable key.
func NewBox(key string) (*Box, error) {
	if key == "" {
		return nil, errors.New("encryption key is required")
	}

	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Box{aead: aead}, nil
}

// Encrypt seals the plaintext and returns a base64 string safe for a
// text column.
func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (b *Box) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	if len(raw) < b.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}
