package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Palette holds the crime-type color configuration
type Palette struct {
	Path string
}

// Flags returns CLI flags for Palette configuration
func (p *Palette) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "palette",
			Usage:       "YAML file with crime-type colors (built-in colors if not set)",
			Category:    "Dashboard",
			Sources:     cli.EnvVars("CRIMEMAP_PALETTE"),
			Destination: &p.Path,
		},
	}
}

// Configure returns the palette from the configured file, or the built-in one
func (p *Palette) Configure() (model.Palette, error) {
	if p.Path == "" {
		return model.DefaultPalette(), nil
	}

	cfg, err := LoadPaletteFromFile(p.Path)
	if err != nil {
		return nil, err
	}
	return cfg.Palette(), nil
}

// LogValue returns structured log value
func (p Palette) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", p.Path),
	)
}

// LoadPaletteFromFile loads a palette from a YAML file
func LoadPaletteFromFile(path string) (*model.PaletteConfig, error) {
	if path == "" {
		return nil, goerr.New("palette file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "palette file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read palette file",
			goerr.V("path", path))
	}

	var cfg model.PaletteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML palette",
			goerr.V("path", path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid palette",
			goerr.V("path", path))
	}

	return &cfg, nil
}
