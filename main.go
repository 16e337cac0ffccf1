package main

import (
	"context"
	"os"

	"github.com/secmon-lab/crimemap/pkg/cli"
	"github.com/secmon-lab/crimemap/pkg/utils/apperr"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		apperr.Handle(ctx, err)
		os.Exit(1)
	}
}
