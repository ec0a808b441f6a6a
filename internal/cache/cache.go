package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores finished ensemble answers so a re-run batch can skip
// questions it already answered. Individual completion calls are never
// cached.
type Cache interface {
	// GetAnswer retrieves a cached answer by key.
	// Returns nil if not found.
	GetAnswer(ctx context.Context, key string) (*Entry, error)

	// SetAnswer stores an answer with TTL.
	SetAnswer(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Flush removes every cached answer.
	Flush(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

// Entry is the cached trace of one answered question.
type Entry struct {
	Variants   []string `json:"variants"`
	Candidates []string `json:"candidates"`
	Final      string   `json:"final"`
}

// GenerateCacheKey derives a key from the pipeline fingerprint (model,
// directives, temperatures) and the question text exactly as it is sent.
func GenerateCacheKey(fingerprint, question string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return hex.EncodeToString(h.Sum(nil))
}
