package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the structured logger used by the inspect server and
// installs it as the zerolog global.
func InitLogger(app string) zerolog.Logger {
	return InitLoggerTo(app, os.Stdout)
}

// InitLoggerTo is InitLogger writing to out. Terminal renders pass a log
// file or io.Discard so the screen stays clean.
func InitLoggerTo(app string, out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    out != os.Stdout && out != os.Stderr,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Int("pid", os.Getpid()).Logger()
	log.Logger = logger
	return logger
}
