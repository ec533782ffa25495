// Package logging configures zap for the library and CLI. The defaults are
// tuned for a short-lived synthesis command: offset timestamps, pretty
// console output on a TTY, JSON otherwise.
package logging

import (
	"fmt"
	"os"
	"time"

	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type Opts struct {
	Verbose bool
	// Color is one of auto, always, never.
	Color string
	// Encoding is one of console, json. Empty means console.
	Encoding string
}

func (opts Opts) useColor() bool {
	switch opts.Color {
	case "always", "on":
		return true
	case "never", "off":
		return false
	default:
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

func (opts Opts) Encoder() zapcore.Encoder {
	switch opts.Encoding {
	case "json":
		if opts.Verbose {
			return zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig())
		}
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console", "":
		if opts.useColor() {
			cfg := prettyconsole.NewEncoderConfig()
			cfg.EncodeTime = offsetTimeEncoder(time.Now(), true)
			return prettyconsole.NewEncoder(cfg)
		}
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = offsetTimeEncoder(time.Now(), false)
		return zapcore.NewConsoleEncoder(cfg)
	default:
		panic(fmt.Errorf("unknown log encoding %q", opts.Encoding))
	}
}

func (opts Opts) Level() zapcore.Level {
	if env, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if lvl, err := zapcore.ParseLevel(env); err == nil {
			return lvl
		}
	}
	if opts.Verbose {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func (opts Opts) NewCore(w zapcore.WriteSyncer) zapcore.Core {
	leveller := zap.NewAtomicLevelAt(opts.Level())
	return zapcore.NewCore(opts.Encoder(), w, leveller)
}

func (opts Opts) NewLogger() *zap.Logger {
	return zap.New(opts.NewCore(zapcore.Lock(os.Stderr)))
}

// offsetTimeEncoder renders times as an offset from start. Synthesis runs
// are seconds long; wall-clock timestamps are noise at that scale.
func offsetTimeEncoder(start time.Time, color bool) zapcore.TimeEncoder {
	colStart, colEnd := "\x1b[90m", "\x1b[0m"
	if !color {
		colStart, colEnd = "", ""
	}
	return func(t time.Time, e zapcore.PrimitiveArrayEncoder) {
		diff := t.Sub(start)
		switch {
		case diff < time.Second:
			e.AppendString(fmt.Sprintf(" %s%3dms%s", colStart, diff.Milliseconds(), colEnd))
		case diff < 5*time.Minute:
			e.AppendString(fmt.Sprintf("%s%5.1fs%s", colStart, diff.Seconds(), colEnd))
		default:
			e.AppendString(fmt.Sprintf("%s%5.1fm%s", colStart, diff.Minutes(), colEnd))
		}
	}
}
