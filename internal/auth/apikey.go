package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"
	keyPrefix    = "imgr"
)

// GenerateKey creates a new API key with the format: imgr-{env}-{32 random alphanumeric chars}
func GenerateKey(env string) (string, error) {
	random, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("generate random: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", keyPrefix, env, random), nil
}

// HashKey returns the SHA-256 hex digest of an API key.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// KeyPrefix returns imgr-{env}-{first 8 chars}, safe to store and display.
func KeyPrefix(key string) string {
	if len(key) < 16 {
		return key
	}
	dashes := 0
	for i, c := range key {
		if c != '-' {
			continue
		}
		dashes++
		if dashes == 2 {
			end := min(i+9, len(key))
			return key[:end]
		}
	}
	return key[:16]
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}

// KeyMetadata is what the store knows about an API key. It is cached as JSON.
type KeyMetadata struct {
	ID                 string    `json:"id"`
	SchoolID           string    `json:"school_id"`
	TeacherID          string    `json:"teacher_id,omitempty"`
	Name               string    `json:"name"`
	AllowAssisted      bool      `json:"allow_assisted"`
	RPMLimit           *int      `json:"rpm_limit,omitempty"`
	DailyAssistedQuota *int      `json:"daily_assisted_quota,omitempty"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// Expired reports whether the key is past its expiry at t.
func (km *KeyMetadata) Expired(t time.Time) bool {
	return !km.ExpiresAt.IsZero() && !t.Before(km.ExpiresAt)
}

// ParseDuration parses a duration string like "365d", "30d", "24h".
func ParseDuration(s string) (time.Duration, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("empty duration")
	}
	if s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("parse days: %w", err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
