package config

import (
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = map[string]logging.Format{
		"auto":    logging.FormatAuto,
		"":        logging.FormatAuto,
		"console": logging.FormatConsole,
		"json":    logging.FormatJSON,
	}
)

// Logger holds logger configuration
type Logger struct {
	Level  string
	Format string
	Output string
}

// Flags returns CLI flags for Logger configuration
func (l *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("CRIMEMAP_LOG_LEVEL"),
			Destination: &l.Level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json, auto)",
			Category:    "Logging",
			Value:       "auto",
			Sources:     cli.EnvVars("CRIMEMAP_LOG_FORMAT"),
			Destination: &l.Format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log destination (stdout, stderr)",
			Category:    "Logging",
			Value:       "stderr",
			Sources:     cli.EnvVars("CRIMEMAP_LOG_OUTPUT"),
			Destination: &l.Output,
		},
	}
}

// Configure sets up the logger based on configuration
func (l *Logger) Configure() (*slog.Logger, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	if l.Output == "stdout" {
		w = os.Stdout
	}

	level := logging.ParseLogLevel(l.Level)
	return logging.NewLoggerWithFormat(level, w, logFormats[l.Format]), nil
}

// LogValue returns structured log value
func (l Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", l.Level),
		slog.String("format", l.Format),
		slog.String("output", l.Output),
	)
}

// Validate validates the logger configuration
func (l *Logger) Validate() error {
	if !slices.Contains(logLevels, l.Level) {
		return goerr.New("invalid log level", goerr.V("level", l.Level))
	}
	if _, ok := logFormats[l.Format]; !ok {
		return goerr.New("invalid log format", goerr.V("format", l.Format))
	}
	switch l.Output {
	case "stdout", "stderr", "":
	default:
		return goerr.New("invalid log output", goerr.V("output", l.Output))
	}
	return nil
}
