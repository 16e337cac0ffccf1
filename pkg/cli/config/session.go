package config

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	controller "github.com/secmon-lab/crimemap/pkg/controller/http"
	"github.com/secmon-lab/crimemap/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const generatedKeySize = 32

// Session holds session token and lifetime configuration
type Session struct {
	Key string
	TTL time.Duration
}

// Flags returns CLI flags for Session configuration
func (s *Session) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "session-key",
			Usage:       "HMAC key for session cookies (random per process if not set)",
			Category:    "Session",
			Sources:     cli.EnvVars("CRIMEMAP_SESSION_KEY"),
			Destination: &s.Key,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Lifetime of a connected session",
			Category:    "Session",
			Value:       usecase.DefaultSessionTTL,
			Sources:     cli.EnvVars("CRIMEMAP_SESSION_TTL"),
			Destination: &s.TTL,
		},
	}
}

// Validate validates the session configuration
func (s *Session) Validate() error {
	if s.TTL <= 0 {
		return goerr.New("session ttl must be positive", goerr.V("ttl", s.TTL))
	}
	return nil
}

// Configure creates the session token signer
func (s *Session) Configure(ctx context.Context) (*controller.TokenSigner, error) {
	key := []byte(s.Key)
	if len(key) == 0 {
		ctxlog.From(ctx).Warn("No session key configured. Sessions will not survive a restart")
		key = make([]byte, generatedKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, goerr.Wrap(err, "failed to generate session key")
		}
	}

	signer, err := controller.NewTokenSigner(key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create token signer")
	}
	return signer, nil
}

// LogValue returns structured log value
func (s Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_key", s.Key != ""),
		slog.Duration("ttl", s.TTL),
	)
}
