package probe

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// skipped elements never carry readable page text
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
}

// Snapshot turns a fetched body into the text handed to the classifier.
// HTML is reduced to its visible text; anything else is kept as-is.
// The result never exceeds limit bytes and never splits a rune.
func Snapshot(body []byte, contentType string, limit int) string {
	text := string(body)
	if isHTML(body, contentType) {
		if extracted, ok := visibleText(body); ok {
			text = extracted
		}
	}
	return clip(text, limit)
}

func isHTML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

func visibleText(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if words := strings.Fields(n.Data); len(words) > 0 {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strings.Join(words, " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

func clip(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
