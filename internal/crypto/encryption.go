// Package crypto encrypts gateway secrets at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// ErrInvalidKey is returned for keys that are not 32 bytes of hex.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (64 hex chars)")

// EncryptionService encrypts and decrypts values stored in the database.
type EncryptionService interface {
	Encrypt(plaintext []byte) (ciphertext, iv string, err error)
	Decrypt(ciphertext, iv string) ([]byte, error)
}

// AESEncryptionService is an AES-256-GCM EncryptionService. Ciphertext and
// nonce are base64 encoded.
type AESEncryptionService struct {
	aead cipher.AEAD
}

// NewAESEncryptionService creates the service from a 64 character hex key.
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESEncryptionService{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (s *AESEncryptionService) Encrypt(plaintext []byte) (string, string, error) {
	iv := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", err
	}

	ciphertext := s.aead.Seal(nil, iv, plaintext, nil)

	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(iv),
		nil
}

// Decrypt opens a value produced by Encrypt.
func (s *AESEncryptionService) Decrypt(ciphertextB64, ivB64 string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, err
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, err
	}
	if len(iv) != s.aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	return s.aead.Open(nil, iv, ciphertext, nil)
}
