// Package logging builds the application's zerolog logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/taskexec/internal/config"
	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// New returns a logger writing to w in the configured format and level.
func New(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), tverrors.NewValidationError("logging", "level", cfg.Level, err.Error())
	}

	switch cfg.Format {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json", "":
	default:
		return zerolog.Nop(), tverrors.NewValidationError("logging", "format", cfg.Format, "unsupported value").
			WithHint("use one of: json, console")
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
