package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Gate holds the credential gate configuration
type Gate struct {
	Secret string
}

// Flags returns CLI flags for Gate configuration
func (g *Gate) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gate-secret",
			Usage:       "Shared secret required to connect to a store",
			Category:    "Gate",
			Sources:     cli.EnvVars("CRIMEMAP_GATE_SECRET"),
			Destination: &g.Secret,
		},
	}
}

// Validate validates the gate configuration
func (g *Gate) Validate() error {
	if g.Secret == "" {
		return goerr.New("gate secret is required. Please provide --gate-secret or CRIMEMAP_GATE_SECRET")
	}
	return nil
}

// LogValue returns structured log value
func (g Gate) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_secret", g.Secret != ""),
		slog.Int("secret_length", len(g.Secret)),
	)
}
