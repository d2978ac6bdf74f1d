package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "studio"

// NewLogger writes to stdout: console output at debug level in development,
// JSON at info level elsewhere and warn level under test.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, appEnv)
}

// NewLoggerTo is NewLogger with an explicit sink. The CLI logs to stderr so
// command output stays parseable.
func NewLoggerTo(w io.Writer, appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	switch appEnv {
	case "development":
		level = zerolog.DebugLevel
	case "test":
		level = zerolog.WarnLevel
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger lets packages accept a logger without importing zerolog directly.
type Logger = zerolog.Logger
