package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// New returns a JSON logger writing to stdout and, when file is set, to a
// size-rotated copy of the same stream. Unknown levels fall back to info.
func New(level, file string) (zerolog.Logger, io.Closer) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	closer := io.Closer(closerFunc(func() error { return nil }))
	if file != "" {
		rotating := &lumberjack.Logger{
			Filename: file,
			MaxSize:  100,
			MaxAge:   7,
			Compress: true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(lvl), closer
}
