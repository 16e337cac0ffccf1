package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/cli/config"
	controller "github.com/secmon-lab/crimemap/pkg/controller/http"
	"github.com/secmon-lab/crimemap/pkg/datastore"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	"github.com/secmon-lab/crimemap/pkg/repository"
	"github.com/secmon-lab/crimemap/pkg/usecase"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const checkDescription = `The secret typed at the prompt is checked against --gate-secret.
Without a terminal there is no prompt and the configured secret is used as is.`

func cmdCheck() *cli.Command {
	var (
		gateCfg config.Gate
		store   string
	)

	flags := joinFlags(
		gateCfg.Flags(),
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "store",
				Aliases:     []string{"s"},
				Usage:       "Store to open (SQLite path or database URL)",
				Value:       config.DefaultStore,
				Sources:     cli.EnvVars("CRIMEMAP_DEFAULT_STORE"),
				Destination: &store,
			},
		},
	)

	return &cli.Command{
		Name:        "check",
		Usage:       "Open a store through the credential gate and summarize its incidents",
		Description: checkDescription,
		Flags:       flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := gateCfg.Validate(); err != nil {
				return err
			}

			supplied := gateCfg.Secret
			if prompted, ok, err := promptSecret(os.Stdin, os.Stderr); err != nil {
				return err
			} else if ok {
				supplied = prompted
			}

			return runCheck(ctx, os.Stdout, datastore.NewOpener(), types.StoreName(store), gateCfg.Secret, supplied)
		},
	}
}

// promptSecret reads the secret without echo. ok is false when in is not a
// terminal.
func promptSecret(in *os.File, out io.Writer) (string, bool, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", false, nil
	}

	fmt.Fprint(out, "Contraseña: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to read secret")
	}
	return string(raw), true, nil
}

// runCheck passes supplied through a gate holding the configured secret,
// loads the incident table once and writes a summary to w
func runCheck(ctx context.Context, w io.Writer, opener interfaces.StoreOpener, store types.StoreName, configured, supplied string) error {
	repo := repository.NewMemory()
	defer safeClose(ctx, repo)

	loader := usecase.NewLoader()
	gate := usecase.NewGate(configured, opener, repo, usecase.WithLoader(loader))
	defer safeClose(ctx, gate)

	session, err := gate.Connect(ctx, store, supplied)
	if err != nil {
		return err
	}
	_, handle, err := gate.Resolve(ctx, session.ID)
	if err != nil {
		return err
	}

	heading := color.New(color.Bold)
	heading.Fprintln(w, controller.MsgConnected+store.String())
	fmt.Fprintf(w, "Controlador: %s\n", handle.Driver())

	table, err := loader.Load(ctx, handle)
	if err != nil {
		return goerr.Wrap(err, strings.TrimSpace(controller.MsgQueryFailed), goerr.V("store", store))
	}

	valid := 0
	for _, row := range table.Rows {
		if row.DateValid {
			valid++
		}
	}
	fmt.Fprintf(w, "Filas: %d (fechas válidas: %d)\n", table.Len(), valid)

	if first, last, ok := table.DateRange(); ok {
		fmt.Fprintf(w, "Rango de fechas: %s a %s\n",
			first.Format(usecase.DateLabelLayout), last.Format(usecase.DateLabelLayout))
	}

	districts := table.Districts()
	heading.Fprintf(w, "Alcaldías (%d)\n", len(districts))
	for _, d := range districts {
		fmt.Fprintf(w, "  - %s\n", d)
	}

	crimeTypes := table.CrimeTypes()
	heading.Fprintf(w, "Tipos de delito (%d)\n", len(crimeTypes))
	for _, ct := range crimeTypes {
		fmt.Fprintf(w, "  - %s\n", ct)
	}

	return nil
}
