package log

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config is the "log" section of the fixturectl config.
type Config struct {
	Level       string `mapstructure:"level"`
	Pretty      bool   `mapstructure:"pretty"`
	ServiceName string `mapstructure:"service_name"`
}

var (
	process     = zerolog.New(os.Stderr).With().Timestamp().Logger()
	processOnce sync.Once
)

// New builds a logger writing to w, or to stderr when w is nil. Stdout is
// reserved for tokens and case output.
func New(cfg Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	fields := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.ServiceName != "" {
		fields = fields.Str(FieldService, cfg.ServiceName)
	}
	return fields.Logger()
}

// Init replaces the process logger once per run and routes the standard
// library logger through it.
func Init(cfg Config) {
	processOnce.Do(func() {
		process = New(cfg, nil)

		stdlog.SetFlags(0)
		stdlog.SetOutput(process.With().Str("source", "stdlog").Logger())
	})
}

// L returns the process logger.
func L() zerolog.Logger {
	return process
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
