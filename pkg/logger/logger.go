// Package logger configures log/slog for the pipeline binaries. Records
// logged through a context that carries a corpus build id gain a build_id
// attribute, so every line of one build can be grepped together.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type buildIDKey struct{}

// Setup installs the process-wide handler writing to stdout.
func Setup(level string, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter installs a text or json handler writing to w and returns the
// new default logger.
func SetupWriter(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var base slog.Handler
	if strings.EqualFold(format, "json") {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}
	l := slog.New(contextHandler{base})
	slog.SetDefault(l)
	return l
}

// contextHandler copies the build id from the record's context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := BuildID(ctx); ok {
		r.AddAttrs(slog.String("build_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// WithBuildID tags ctx with the corpus build being produced or consumed.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return context.WithValue(ctx, buildIDKey{}, buildID)
}

func BuildID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(buildIDKey{}).(string)
	return id, ok && id != ""
}

// FromContext returns the default logger with the build id of ctx bound,
// for code that logs without passing ctx on each call.
func FromContext(ctx context.Context) *slog.Logger {
	if id, ok := BuildID(ctx); ok {
		return slog.Default().With("build_id", id)
	}
	return slog.Default()
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// parseLevel accepts the slog level names in any case, with optional
// offsets such as "debug+2". Anything else means info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
