// Package logging installs the slog logger shared by every pulse command.
//
// Terminals get coloured tinter lines, everything else (launchd, systemd,
// a pipe) one JSON object per line. Attributes that carry credentials are
// masked before any handler sees them.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// TimeFormat is the timestamp layout of text output.
const TimeFormat = "15:04:05.000"

// Redacted replaces the value of a secret attribute.
const Redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]bool{
	"token":         true,
	"authorization": true,
	"control_token": true,
	"upload_token":  true,
}

// Options describe the requested logging from flags and config.
type Options struct {
	Format string
	Level  string
	// Interactive lowers the default level to debug.
	Interactive bool
}

// Resolve turns the raw flag values into a Format and level. An empty or
// unknown level falls back to debug for interactive runs and info otherwise.
func (o Options) Resolve() (Format, slog.Level) {
	fallback := slog.LevelInfo
	if o.Interactive {
		fallback = slog.LevelDebug
	}
	return ParseFormat(o.Format), ParseLevel(o.Level, fallback)
}

// ParseFormat maps a flag value to a Format; unknown values mean auto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human", "pretty":
		return FormatText
	case "json":
		return FormatJSON
	}
	return FormatAuto
}

// ParseLevel maps a flag value to a level, or fallback when s is empty
// or not a level name.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	var l slog.Level
	if strings.TrimSpace(s) == "" || l.UnmarshalText([]byte(s)) != nil {
		return fallback
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New builds the pulse logger on w. Every record carries app=pulse.
func New(w io.Writer, format Format, level slog.Level) *slog.Logger {
	var h slog.Handler
	switch {
	case format == FormatText, format == FormatAuto && IsTTY(w):
		h = tinter.NewHandler(w, &tinter.Options{Level: level, TimeFormat: TimeFormat})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(redactor{h}).With("app", "pulse")
}

// Setup installs the stderr logger for o as the slog default.
func Setup(o Options) {
	format, level := o.Resolve()
	slog.SetDefault(New(os.Stderr, format, level))
}

// redactor masks secret attributes, including those added through With
// and inside groups.
type redactor struct {
	slog.Handler
}

func (r redactor) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return r.Handler.Handle(ctx, out)
}

func (r redactor) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redact(a)
	}
	return redactor{r.Handler.WithAttrs(masked)}
}

func (r redactor) WithGroup(name string) slog.Handler {
	return redactor{r.Handler.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, g := range group {
			masked[i] = redact(g)
		}
		return slog.Group(a.Key, masked...)
	}
	if secretKeys[strings.ToLower(a.Key)] && a.Value.String() != "" {
		return slog.String(a.Key, Redacted)
	}
	return a
}
