package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"tenant-backup/internal/errors"
)

const (
	saltSize         = 32
	keySize          = 32
	pbkdf2Iterations = 100000
)

// Encryptor seals and opens archives with AES-256-GCM. Keys are derived
// from a passphrase with PBKDF2, or read directly from a key file.
type Encryptor struct {
	config EncryptionConfig
}

// NewEncryptor creates an encryptor for the configuration
func NewEncryptor(config EncryptionConfig) (*Encryptor, error) {
	if config.Enabled && config.Passphrase == "" && config.KeyFile == "" {
		return nil, errors.NewEncryptionError("encryption requires a passphrase or key file", nil)
	}
	return &Encryptor{config: config}, nil
}

// Enabled reports whether archives are encrypted
func (e *Encryptor) Enabled() bool {
	return e.config.Enabled
}

// Encrypt seals data. Output layout: salt, nonce, ciphertext. The salt is
// all zeros when the key comes from a key file instead of a passphrase.
func (e *Encryptor) Encrypt(data []byte) ([]byte, error) {
	if !e.config.Enabled {
		return data, nil
	}

	salt := make([]byte, saltSize)
	if e.config.Passphrase != "" {
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, errors.NewEncryptionError("failed to generate salt", err)
		}
	}

	key, err := e.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.NewEncryptionError("failed to generate nonce", err)
	}

	sealed := gcm.Seal(nil, nonce, data, nil)

	result := make([]byte, 0, saltSize+len(nonce)+len(sealed))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, sealed...)
	return result, nil
}

// Decrypt opens data sealed by Encrypt
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	if !e.config.Enabled {
		return data, nil
	}
	if len(data) < saltSize {
		return nil, errors.NewEncryptionError("encrypted archive is too short", nil)
	}

	salt, remainder := data[:saltSize], data[saltSize:]

	key, err := e.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(remainder) < nonceSize {
		return nil, errors.NewEncryptionError("encrypted archive is too short", nil)
	}
	nonce, ciphertext := remainder[:nonceSize], remainder[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.NewEncryptionError("failed to decrypt archive: wrong passphrase or corrupted data", err)
	}
	return plaintext, nil
}

func (e *Encryptor) deriveKey(salt []byte) ([]byte, error) {
	if e.config.Passphrase != "" {
		return pbkdf2.Key([]byte(e.config.Passphrase), salt, pbkdf2Iterations, keySize, sha256.New), nil
	}

	key, err := os.ReadFile(e.config.KeyFile)
	if err != nil {
		return nil, errors.NewEncryptionError("failed to read key file", err)
	}
	if len(key) != keySize {
		return nil, errors.NewEncryptionError("key file must contain 32 bytes for AES-256", nil)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.NewEncryptionError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.NewEncryptionError("failed to create GCM cipher", err)
	}
	return gcm, nil
}
