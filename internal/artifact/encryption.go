package artifact

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

// Artifact envelope layout: magic, 16-byte salt, GCM nonce, ciphertext.
var encryptionMagic = []byte("DBSNAPE1")

const (
	encryptionSaltSize   = 16
	encryptionKeySize    = 32
	encryptionIterations = 100000
)

// EncryptionConfig controls at-rest encryption of stored artifacts.
type EncryptionConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	KeySource  string `yaml:"key_source" json:"key_source"` // env, file, passphrase
	KeyEnvVar  string `yaml:"key_env_var" json:"key_env_var"`
	KeyPath    string `yaml:"key_path" json:"key_path"`
	Passphrase string `yaml:"passphrase" json:"passphrase"`
}

// Encryptor seals and opens artifact payloads with AES-256-GCM.
type Encryptor struct {
	config *EncryptionConfig
}

// NewEncryptor creates an encryptor for the given configuration.
func NewEncryptor(config *EncryptionConfig) *Encryptor {
	if config == nil {
		config = &EncryptionConfig{}
	}
	return &Encryptor{config: config}
}

// IsEnabled returns whether encryption is enabled.
func (e *Encryptor) IsEnabled() bool {
	return e.config.Enabled
}

// Algorithm returns the cipher in use.
func (e *Encryptor) Algorithm() string {
	if !e.config.Enabled {
		return "NONE"
	}
	return "AES-256-GCM"
}

// Encrypt seals data into the artifact envelope. When encryption is disabled
// the input is returned unchanged.
func (e *Encryptor) Encrypt(data []byte) ([]byte, error) {
	if !e.config.Enabled {
		return data, nil
	}

	salt := make([]byte, encryptionSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := e.resolveKey(salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(encryptionMagic)+len(salt)+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, encryptionMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, data, nil)
	return out, nil
}

// Decrypt opens a sealed artifact envelope. Data without the envelope magic is
// passed through untouched so unencrypted artifacts remain readable.
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, encryptionMagic) {
		return data, nil
	}

	rest := data[len(encryptionMagic):]
	if len(rest) < encryptionSaltSize {
		return nil, errors.New("encrypted artifact is truncated")
	}
	salt, rest := rest[:encryptionSaltSize], rest[encryptionSaltSize:]

	key, err := e.resolveKey(salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, errors.New("encrypted artifact is truncated")
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt artifact: %w", err)
	}
	return plaintext, nil
}

// resolveKey produces the 32-byte AES key from the configured source. The salt
// is only consulted for passphrase derivation.
func (e *Encryptor) resolveKey(salt []byte) ([]byte, error) {
	switch e.config.KeySource {
	case "env":
		if e.config.KeyEnvVar == "" {
			return nil, errors.New("key_env_var must be set when key_source is env")
		}
		hexKey := os.Getenv(e.config.KeyEnvVar)
		if hexKey == "" {
			return nil, fmt.Errorf("environment variable %s not set", e.config.KeyEnvVar)
		}
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex key from %s: %w", e.config.KeyEnvVar, err)
		}
		if len(key) != encryptionKeySize {
			return nil, fmt.Errorf("key from %s must be %d bytes for AES-256", e.config.KeyEnvVar, encryptionKeySize)
		}
		return key, nil
	case "file":
		if e.config.KeyPath == "" {
			return nil, errors.New("key_path must be set when key_source is file")
		}
		key, err := os.ReadFile(e.config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		if len(key) != encryptionKeySize {
			return nil, fmt.Errorf("key file must contain %d bytes for AES-256", encryptionKeySize)
		}
		return key, nil
	case "passphrase":
		if e.config.Passphrase == "" {
			return nil, errors.New("passphrase must be set when key_source is passphrase")
		}
		return pbkdf2.Key([]byte(e.config.Passphrase), salt, encryptionIterations, encryptionKeySize, sha256.New), nil
	default:
		return nil, fmt.Errorf("unsupported key source: %s", e.config.KeySource)
	}
}

// GenerateKey produces a random 256-bit key suitable for the env or file key
// sources, hex-encoded for the former.
func GenerateKey() ([]byte, error) {
	key := make([]byte, encryptionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm, nil
}
