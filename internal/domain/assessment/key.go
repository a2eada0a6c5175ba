package assessment

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// MaxInputLength bounds the raw input accepted by the pipeline.
const MaxInputLength = 512

// Normalize lowercases s, trims it and collapses inner whitespace runs.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// CacheKey returns the 64-char hex SHA-256 of the normalized input.
func CacheKey(input string) string {
	sum := sha256.Sum256([]byte(Normalize(input)))
	return hex.EncodeToString(sum[:])
}

// IsCacheKey reports whether s has the shape produced by CacheKey.
func IsCacheKey(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// IsStale reports whether an entry created at createdAt is older than ttl.
// A non-positive ttl disables caching.
func IsStale(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(createdAt) > ttl
}

// CheckInput validates raw user input before any stage runs.
func CheckInput(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ErrEmptyInput
	}
	if len(s) > MaxInputLength {
		return ErrInputTooLong
	}
	if countQuoted(s) >= 2 {
		return ErrMultipleEntities
	}
	lines := 0
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	if lines > 1 {
		return ErrMultipleEntities
	}
	return nil
}

// countQuoted counts non-empty "..." segments, treating curly quotes as straight.
func countQuoted(s string) int {
	s = strings.NewReplacer("“", `"`, "”", `"`).Replace(s)
	parts := strings.Split(s, `"`)
	n := 0
	// odd indices sit between a pair of quotes
	for i := 1; i < len(parts)-1; i += 2 {
		if strings.TrimFunc(parts[i], unicode.IsSpace) != "" {
			n++
		}
	}
	return n
}
