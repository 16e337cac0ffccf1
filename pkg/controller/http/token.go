package http

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

const tokenIssuer = "crimemap"

// TokenSigner issues and verifies the HS256 session token kept in the
// browser cookie
type TokenSigner struct {
	key []byte
}

// NewTokenSigner creates a signer for key. The key must not be empty.
func NewTokenSigner(key []byte) (*TokenSigner, error) {
	if len(key) == 0 {
		return nil, goerr.New("session signing key is empty")
	}
	return &TokenSigner{key: key}, nil
}

// Sign returns a compact JWT whose subject is the session ID
func (s *TokenSigner) Sign(session *model.Session) (string, error) {
	tok, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(session.ID.String()).
		IssuedAt(session.CreatedAt).
		Expiration(session.ExpiresAt).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build session token")
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign session token")
	}
	return string(signed), nil
}

// Verify checks signature, issuer and expiry and returns the session ID
func (s *TokenSigner) Verify(token string) (types.SessionID, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAcceptableSkew(5*time.Second),
	)
	if err != nil {
		return "", goerr.Wrap(err, "invalid session token")
	}
	if tok.Subject() == "" {
		return "", goerr.New("session token has no subject")
	}
	return types.SessionID(tok.Subject()), nil
}
