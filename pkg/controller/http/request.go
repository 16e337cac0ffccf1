package http

import (
	"net/http"
	"strings"
)

// isSecureRequest reports whether the client reached us over HTTPS,
// directly or through a TLS-terminating proxy
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	// X-Forwarded-Proto may contain multiple values separated by comma.
	// The first one is the scheme of the original client request.
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first := strings.TrimSpace(strings.Split(proto, ",")[0])
		return strings.EqualFold(first, "https")
	}

	return false
}
