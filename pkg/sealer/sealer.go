// Package sealer issues opaque AES-GCM tokens that bind a subject to an
// expiry time. Nothing readable leaves the server.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Sealer struct {
	aead cipher.AEAD
	now  func() time.Time
}

// New builds a sealer from a raw AES-256 key.
func New(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("sealer key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aead, now: time.Now}, nil
}

// Seal encrypts subject together with its expiry.
func (s *Sealer) Seal(subject string, expiresAt time.Time) (string, error) {
	plaintext := []byte(strconv.FormatInt(expiresAt.Unix(), 10) + ":" + subject)

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open returns the sealed subject, or ErrInvalidToken / ErrExpiredToken.
func (s *Sealer) Open(token string) (string, time.Time, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) <= nonceSize {
		return "", time.Time{}, ErrInvalidToken
	}

	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}

	rawExpiry, subject, ok := strings.Cut(string(pt), ":")
	if !ok || subject == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}

	expiresAt := time.Unix(unix, 0).UTC()
	if !s.now().Before(expiresAt) {
		return "", expiresAt, ErrExpiredToken
	}
	return subject, expiresAt, nil
}
