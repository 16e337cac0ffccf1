package frontend

import (
	"embed"
	"io/fs"
)

// FS embeds the dashboard page and its assets
//
//go:embed all:dist
var FS embed.FS

// Dist returns the embedded frontend rooted at dist
func Dist() (fs.FS, error) {
	sub, err := fs.Sub(FS, "dist")
	if err != nil {
		return nil, err
	}

	// index.html marks a usable frontend
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		return nil, err
	}

	return sub, nil
}
