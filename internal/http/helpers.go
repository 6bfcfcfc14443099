package http

import (
	"net/http"
	"strings"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// isHTMX reports whether the request came from htmx and wants a partial.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
