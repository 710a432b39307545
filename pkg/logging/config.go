package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/pkg/constants"
)

// Config holds logger configuration options.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error or off.
	Level string

	// Format is json, console or auto. Auto picks console on a terminal.
	Format string

	// Output is stderr, stdout, discard or a file path opened for append.
	Output string

	// TimeFormat is kitchen, rfc3339, rfc3339nano, unix or a Go layout.
	// Console output only.
	TimeFormat string

	NoColor   bool
	AddCaller bool

	// Fields are attached to every event.
	Fields map[string]string
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
}

// NewLoggerFromConfig builds a logger. It also sets the zerolog global level.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logCtx := zerolog.New(writerFor(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		logCtx = logCtx.Caller()
	}
	for k, v := range cfg.Fields {
		logCtx = logCtx.Str(k, v)
	}
	return logCtx.Logger()
}

// Configure replaces the default logger.
func Configure(cfg *Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

func writerFor(cfg *Config) io.Writer {
	out := openOutput(cfg.Output)

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal(out) {
			format = "console"
		}
	}
	if format != "console" && format != "pretty" {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeLayout(cfg.TimeFormat),
		NoColor:    cfg.NoColor,
	}
}

// openOutput falls back to stderr when a log file cannot be opened.
func openOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr
	}
	return file
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none", "disabled":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

func timeLayout(format string) string {
	switch strings.ToLower(format) {
	case "", "kitchen":
		return time.Kitchen
	case "rfc3339":
		return time.RFC3339
	case "rfc3339nano":
		return time.RFC3339Nano
	case "unix":
		return ""
	}
	if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
		return format
	}
	return time.Kitchen
}
