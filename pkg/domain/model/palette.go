package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// Color is an RGBA fill color used by the map and chart renderers
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// MarshalJSON encodes the color as a [r, g, b, a] array, the form deck.gl expects
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]uint8{c.R, c.G, c.B, c.A})
}

// Palette maps crime-type labels to their fill color
type Palette map[types.CrimeType]Color

// DefaultPalette returns the built-in colors for the known crime types
func DefaultPalette() Palette {
	return Palette{
		"Robo a transeúnte": {R: 255, G: 0, B: 0, A: 160},
		"Homicidio":         {R: 0, G: 0, B: 255, A: 160},
		"Lesiones":          {R: 0, G: 255, B: 0, A: 160},
		"Secuestro":         {R: 255, G: 255, B: 0, A: 160},
		"Extorsión":         {R: 255, G: 165, B: 0, A: 160},
	}
}

// Lookup returns a copy of the color for label, or nil when the label has no entry
func (p Palette) Lookup(label types.CrimeType) *Color {
	c, ok := p[label]
	if !ok {
		return nil
	}
	return &c
}

// PaletteEntry is one crime-type color in a palette file
type PaletteEntry struct {
	CrimeType string `yaml:"crime_type"` // Exact crime-type label
	RGBA      []int  `yaml:"rgba"`       // Four components, 0-255
}

// Validate validates the palette entry
func (e *PaletteEntry) Validate() error {
	if e.CrimeType == "" {
		return goerr.New("crime type is required")
	}
	if len(e.RGBA) != 4 {
		return goerr.New("rgba must have exactly 4 components",
			goerr.V("crime_type", e.CrimeType),
			goerr.V("components", len(e.RGBA)))
	}
	for _, v := range e.RGBA {
		if v < 0 || v > 255 {
			return goerr.New("rgba component out of range",
				goerr.V("crime_type", e.CrimeType),
				goerr.V("value", v))
		}
	}
	return nil
}

// PaletteConfig represents the palette configuration file
type PaletteConfig struct {
	Colors []PaletteEntry `yaml:"colors"`
}

// Validate validates the palette configuration
func (c *PaletteConfig) Validate() error {
	if len(c.Colors) == 0 {
		return goerr.New("at least one color is required")
	}

	seen := make(map[string]bool)
	for i, entry := range c.Colors {
		if err := entry.Validate(); err != nil {
			return goerr.Wrap(err, "invalid color at index",
				goerr.V("index", i))
		}
		if seen[entry.CrimeType] {
			return goerr.New("duplicate crime type",
				goerr.V("crime_type", entry.CrimeType))
		}
		seen[entry.CrimeType] = true
	}

	return nil
}

// Palette converts the configuration into a Palette. Call Validate first.
func (c *PaletteConfig) Palette() Palette {
	p := make(Palette, len(c.Colors))
	for _, entry := range c.Colors {
		p[types.CrimeType(entry.CrimeType)] = Color{
			R: uint8(entry.RGBA[0]),
			G: uint8(entry.RGBA[1]),
			B: uint8(entry.RGBA[2]),
			A: uint8(entry.RGBA[3]),
		}
	}
	return p
}
