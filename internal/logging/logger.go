package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Level zerolog.Level

const (
	DebugLevel = Level(zerolog.DebugLevel)
	InfoLevel  = Level(zerolog.InfoLevel)
)

func (l Level) toZerolog() zerolog.Level {
	return zerolog.Level(l)
}

func (l Level) String() string {
	return l.toZerolog().String()
}

// Setup replaces the global logger. Debug level writes human-readable console
// output, everything else writes JSON lines to stdout.
func Setup(level Level) {
	SetupWriter(level, nil)
}

// SetupWriter is Setup with an explicit destination; a nil writer picks the
// default for the level.
func SetupWriter(level Level, writer io.Writer) {
	zerolog.SetGlobalLevel(level.toZerolog())
	if writer == nil {
		switch level.toZerolog() {
		case zerolog.DebugLevel, zerolog.TraceLevel:
			writer = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
				w.TimeFormat = time.RFC3339
			})
		default:
			writer = os.Stdout
		}
	}
	log.Logger = zerolog.
		New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func ParseLevel(lvl string) Level {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(lvl))
	if err != nil || parsedLevel == zerolog.NoLevel {
		return InfoLevel
	}
	return Level(parsedLevel)
}
