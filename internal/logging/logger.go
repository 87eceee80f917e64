package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the structured logger shared across packages.
type Logger = zerolog.Logger

// New returns a JSON logger tagged with app, or a console logger when env is
// "local". An unparsable level falls back to info.
func New(app, env, level string) Logger {
	var out io.Writer = os.Stdout
	if env == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return NewWithWriter(out, app, level)
}

// NewWithWriter builds a logger writing to out. An empty app omits the field.
func NewWithWriter(out io.Writer, app, level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if app != "" {
		ctx = ctx.Str("app", app)
	}
	return ctx.Logger()
}
