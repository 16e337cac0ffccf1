package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
)

// DefaultStore is the store name prefilled in the connection form
const DefaultStore = "incidencia_cdmx.db"

// Server holds server configuration
type Server struct {
	Addr         string
	DefaultStore string
}

// Flags returns CLI flags for Server configuration
func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Sources:     cli.EnvVars("CRIMEMAP_ADDR"),
			Destination: &s.Addr,
		},
		&cli.StringFlag{
			Name:        "default-store",
			Usage:       "Store name prefilled in the connection form",
			Value:       DefaultStore,
			Sources:     cli.EnvVars("CRIMEMAP_DEFAULT_STORE"),
			Destination: &s.DefaultStore,
		},
	}
}

// LogValue returns structured log value
func (s Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr),
		slog.String("default_store", s.DefaultStore),
	)
}
