// Package log wraps a package-level zerolog logger so call sites never need
// to import zerolog directly, matching how the rest of this codebase talks
// about logging.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}

// Configure replaces the default console writer, e.g. with a file or a
// multi-writer fanning out to several destinations.
func Configure(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel adjusts the minimum emitted level. level is one of "debug",
// "info", "warn", "error".
func SetLevel(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}

func Debugf(format string, v ...interface{}) { logger.Debug().Msgf(format, v...) }
func Infof(format string, v ...interface{})  { logger.Info().Msgf(format, v...) }
func Warningf(format string, v ...interface{}) { logger.Warn().Msgf(format, v...) }
func Errorf(format string, v ...interface{}) { logger.Error().Msgf(format, v...) }
func Fatalf(format string, v ...interface{}) { logger.Fatal().Msgf(format, v...) }

func Debug(msg string) { logger.Debug().Msg(msg) }
func Info(msg string)  { logger.Info().Msg(msg) }
func Warning(msg string) { logger.Warn().Msg(msg) }
func Error(msg string) { logger.Error().Msg(msg) }

// WithTarget returns a logger whose lines are tagged with the owning build
// target, so a busy parallel build's interleaved output stays attributable.
func WithTarget(target string) *zerolog.Logger {
	l := logger.With().Str("target", target).Logger()
	return &l
}
