package middleware

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

// Input validation and sanitization utilities

// ValidateTarget sanitizes a free-text assessment target and checks it the
// same way the pipeline does.
func ValidateTarget(raw string) (string, error) {
	s := SanitizeString(raw)
	if err := assessment.CheckInput(s); err != nil {
		return "", err
	}
	return s, nil
}

// ValidateCacheKey checks the 64-char hex shape of a cache key.
func ValidateCacheKey(key string) error {
	if !assessment.IsCacheKey(strings.ToLower(key)) {
		return fmt.Errorf("invalid cache key format (expected 64 hex characters)")
	}
	return nil
}

// ValidateURL rejects URLs that would make the prober reach localhost or
// private networks.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("localhost/internal hosts are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil {
		return ValidateIP(ip)
	}
	return nil
}

// ValidateIP rejects loopback, private, link-local (cloud metadata) and
// unspecified addresses. The prober runs it on every resolved dial address.
func ValidateIP(ip net.IP) error {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("private IP ranges are not allowed: %s", ip)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
