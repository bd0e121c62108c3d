// Package logging adapts zerolog to the Logger interface the rest of the
// system is written against.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger wraps a zerolog.Logger behind the printf style surface used
// across the services
type ZeroLogger struct {
	log zerolog.Logger
}

// New builds a service logger. Development gets a human readable console
// writer, everything else structured JSON on stdout.
func New(service, env string) *ZeroLogger {
	var logger zerolog.Logger

	if env == "development" {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		logger = zerolog.New(out)
	} else {
		logger = zerolog.New(os.Stdout)
	}

	logger = logger.With().
		Timestamp().
		Str("service", service).
		Logger()

	return &ZeroLogger{log: logger}
}

func (z *ZeroLogger) Debug(format string, args ...any) {
	z.log.Debug().Msgf(format, args...)
}

func (z *ZeroLogger) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

func (z *ZeroLogger) Warn(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

func (z *ZeroLogger) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}
