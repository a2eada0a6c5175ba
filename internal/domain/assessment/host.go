package assessment

import (
	"net/url"
	"strings"
)

// HostOf extracts the bare host from a website or URL-looking string.
// It returns "" when s does not look like a domain.
func HostOf(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if !strings.Contains(host, ".") || strings.ContainsAny(host, " \t") {
		return ""
	}
	return host
}

// LooksLikeURL reports whether raw input was given as a URL or bare domain.
func LooksLikeURL(raw string) bool {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "www.") {
		return true
	}
	return !strings.Contains(s, " ") && !strings.HasSuffix(s, ".") && HostOf(s) != ""
}
