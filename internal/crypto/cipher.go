package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

var (
	ErrEmptySecret    = errors.New("credential secret must not be empty")
	ErrInvalidPayload = errors.New("invalid encrypted payload")
)

// scrypt parameters, fixed so existing ciphertexts stay decryptable
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	keyLen       = 32
	saltLen      = 16
	payloadParts = 2
)

// Cipher encrypts CalDAV credentials at rest with AES-GCM. The key is
// derived per-payload from the configured secret and a random salt, so
// the same password never produces the same ciphertext twice.
type Cipher struct {
	secret []byte
}

// NewCipher creates a Cipher from the configured credential secret
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Cipher{secret: []byte(secret)}, nil
}

// Encrypt returns "base64(salt).base64(nonce||ciphertext)"
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(salt) + "." +
		base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (c *Cipher) Decrypt(encoded string) (string, error) {
	salt, sealed, err := splitPayload(encoded)
	if err != nil {
		return "", err
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", ErrInvalidPayload
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(c.secret, salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func splitPayload(encoded string) ([]byte, []byte, error) {
	saltPart, sealedPart, found := strings.Cut(encoded, ".")
	if !found || saltPart == "" || sealedPart == "" {
		return nil, nil, ErrInvalidPayload
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) != saltLen {
		return nil, nil, ErrInvalidPayload
	}
	sealed, err := base64.RawStdEncoding.DecodeString(sealedPart)
	if err != nil {
		return nil, nil, ErrInvalidPayload
	}
	return salt, sealed, nil
}
