package http_test

import (
	"net/http/cookiejar"
	"testing"

	"github.com/m-mizutani/gt"
)

func newCookieJar(t *testing.T) *cookiejar.Jar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	gt.NoError(t, err).Required()
	return jar
}
