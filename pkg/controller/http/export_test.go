package http

import (
	"net/http"

	"github.com/secmon-lab/crimemap/pkg/domain/model"
)

// Test-only accessors for unexported helpers
func ParseSelection(r *http.Request) (model.Selection, error) {
	return parseSelection(r)
}

func IsSecureRequest(r *http.Request) bool {
	return isSecureRequest(r)
}

func ConnectFailure(err error) (int, string) {
	return connectFailure(err)
}
