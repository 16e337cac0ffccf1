package cli

import (
	"context"
	"io"

	"github.com/secmon-lab/crimemap/pkg/utils/apperr"
	"github.com/urfave/cli/v3"
)

// joinFlags combines multiple flag slices into one
func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	var result []cli.Flag
	for _, f := range flags {
		result = append(result, f...)
	}
	return result
}

type validator interface {
	Validate() error
}

// validateAll returns the first configuration error
func validateAll(cfgs ...validator) error {
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// safeClose closes c and logs a failure instead of returning it
func safeClose(ctx context.Context, c io.Closer) {
	if err := c.Close(); err != nil {
		apperr.Handle(ctx, err)
	}
}
