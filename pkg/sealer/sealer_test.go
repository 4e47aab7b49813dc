package sealer

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testKey = []byte(strings.Repeat("k", 32))

func newTestSealer(t *testing.T, now time.Time) *Sealer {
	t.Helper()
	s, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestNew_KeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		if _, err := New(make([]byte, n)); err == nil {
			t.Errorf("New() with %d-byte key should fail", n)
		}
	}
}

func TestSealOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSealer(t, now)

	token, err := s.Seal("admin@parkly.test", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if strings.Contains(token, "admin") {
		t.Errorf("token leaks the subject: %s", token)
	}

	subject, expiresAt, err := s.Open(token)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if subject != "admin@parkly.test" {
		t.Errorf("subject = %q", subject)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expiresAt = %v", expiresAt)
	}
}

func TestOpen_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSealer(t, now)

	token, _ := s.Seal("admin@parkly.test", now.Add(-time.Second))
	if _, _, err := s.Open(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Open() error = %v, want ErrExpiredToken", err)
	}
}

func TestOpen_Invalid(t *testing.T) {
	now := time.Now()
	s := newTestSealer(t, now)
	valid, _ := s.Seal("admin@parkly.test", now.Add(time.Hour))

	other, _ := New([]byte(strings.Repeat("x", 32)))
	foreign, _ := other.Seal("admin@parkly.test", now.Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"too short", "abc"},
		{"tampered", tamper(valid)},
		{"other key", foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Open(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Open(%q) error = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}
}

func tamper(token string) string {
	b := []byte(token)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
