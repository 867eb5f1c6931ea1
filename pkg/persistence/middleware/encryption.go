package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
)

// encryptedPrefix marks a field value sealed by this middleware.
const encryptedPrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the content of a session
// (message bodies, filename label and document index) with AES-GCM.
// Identifiers and timestamps stay in clear text so the store can still list and sweep.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	if session == nil {
		return m.next.Save(ctx, sessionID, session)
	}

	// Work on a copy so the caller's (cached) record stays readable.
	sealed := session.Clone()
	err := transform(sealed, func(s string) (string, error) {
		return m.seal(s)
	})
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to encrypt session: %w", err))
	}
	return m.next.Save(ctx, sessionID, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	err = transform(session, func(s string) (string, error) {
		return m.open(s)
	})
	if err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to decrypt session: %w", err))
	}
	return session, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	return m.next.Sweep(ctx, maxAge)
}

func (m *encryptionMiddleware) seal(plain string) (string, error) {
	ciphertext, err := encrypt([]byte(plain), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *encryptionMiddleware) open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, encryptedPrefix)
	if !ok {
		// Fail secure: with encryption configured, every field must be sealed.
		return "", errors.New("field is missing encrypted data envelope")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// transform applies fn to every sensitive field of s in place.
func transform(s *domain.Session, fn func(string) (string, error)) error {
	var err error
	if s.Filename, err = fn(s.Filename); err != nil {
		return err
	}
	for i := range s.ChatHistory {
		if s.ChatHistory[i].Content, err = fn(s.ChatHistory[i].Content); err != nil {
			return err
		}
	}
	if s.DocumentIndex != nil {
		if s.DocumentIndex.Text, err = fn(s.DocumentIndex.Text); err != nil {
			return err
		}
		for i := range s.DocumentIndex.Sources {
			if s.DocumentIndex.Sources[i], err = fn(s.DocumentIndex.Sources[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
