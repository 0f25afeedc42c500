// Package encryption keeps exchange credentials of the configuration document
// encrypted at rest (AES-256-GCM, base64 encoded, nonce prefixed).
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"tradebot-config/internal/logging"

	"golang.org/x/crypto/hkdf"
)

// Exchange config keys holding credentials
const (
	ExchangeAPIKey      = "api-key"
	ExchangeAPISecret   = "api-secret"
	ExchangeAPIPassword = "api-password"
)

// ExchangeEncryptedValues lists the exchange config values that must be stored encrypted
var ExchangeEncryptedValues = []string{ExchangeAPIKey, ExchangeAPISecret, ExchangeAPIPassword}

// DefaultPassphrase is used when no key is configured. Development only.
const DefaultPassphrase = "tradebot-config-default-encryption-key"

var keySalt = []byte("tradebot-config/credentials")

var (
	// ErrDecryptFailed is returned when a value is not a valid ciphertext for the key
	ErrDecryptFailed = errors.New("failed to decrypt value")

	// ErrEncryptFailed is returned when a plaintext value could not be encrypted
	ErrEncryptFailed = errors.New("failed to encrypt value")

	// ErrInvalidValue is returned when a credential is not a string
	ErrInvalidValue = errors.New("credential value is not a string")
)

// placeholders shipped in default configs, never encrypted
var placeholders = map[string]bool{
	"your-api-key-here":      true,
	"your-api-secret-here":   true,
	"your-api-password-here": true,
	"your_api_key_here":      true,
	"your_secret_key_here":   true,
}

// IsPlaceholder reports whether v is a default placeholder credential
func IsPlaceholder(v string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(v))]
}

// Encryptor encrypts and decrypts configuration values with one key
type Encryptor struct {
	gcm    cipher.AEAD
	logger *logging.Logger
}

// NewEncryptor derives a 256 bit key from passphrase with HKDF-SHA256
func NewEncryptor(passphrase string, logger *logging.Logger) (*Encryptor, error) {
	if passphrase == "" {
		return nil, errors.New("empty encryption passphrase")
	}
	if logger == nil {
		logger = logging.Default()
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), keySalt, nil), key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{
		gcm:    gcm,
		logger: logger.WithComponent("Encryption"),
	}, nil
}

// Encrypt returns base64(nonce || ciphertext)
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrDecryptFailed)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

// EnsureEncrypted checks section[valueKey]. It returns true when the value is
// absent, empty, a placeholder or already encrypted with this key. A plaintext
// value is encrypted in place and false is returned: the section changed.
func (e *Encryptor) EnsureEncrypted(valueKey string, section map[string]interface{}, verbose bool) (bool, error) {
	raw, ok := section[valueKey]
	if !ok || raw == nil {
		return true, nil
	}
	value, ok := raw.(string)
	if !ok {
		return true, fmt.Errorf("%w: %s is %T", ErrInvalidValue, valueKey, raw)
	}
	if value == "" || IsPlaceholder(value) {
		return true, nil
	}
	if _, err := e.Decrypt(value); err == nil {
		return true, nil
	}

	encrypted, err := e.Encrypt(value)
	if err != nil {
		return true, err
	}
	section[valueKey] = encrypted
	if verbose {
		e.logger.Warn("Non encrypted secret info found in config, replaced value with encrypted equivalent", "key", valueKey)
	}
	return false, nil
}
