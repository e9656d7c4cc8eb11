// Package log is the process-wide structured logger. Records are logfmt by default or JSON
// when configured, and carry the request id found on the context.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Output formats accepted by Setup.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type requestIDKey struct{}

var (
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(slog.New(newHandler(os.Stdout, FormatText)))
}

// Setup sets the minimum level and output format of the global logger, writing to stdout.
func Setup(lvl, format string) error {
	return SetupWriter(os.Stdout, lvl, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, lvl, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", FormatText, "logfmt":
		format = FormatText
	case FormatJSON:
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}
	if err := SetLevel(lvl); err != nil {
		return err
	}
	current.Store(slog.New(newHandler(w, format)))
	return nil
}

// SetLevel changes the minimum level without touching the output. Accepts debug, info, warn
// and error in any case; blank means info.
func SetLevel(lvl string) error {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "", "info":
		level.Set(slog.LevelInfo)
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", lvl)
	}
	return nil
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: renameAttr}
	if format == FormatJSON {
		return requestHandler{slog.NewJSONHandler(w, opts)}
	}
	return requestHandler{slog.NewTextHandler(w, opts)}
}

func renameAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	}
	return attr
}

// requestHandler stamps records with the request id carried by the context.
type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := RequestID(ctx); id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, record)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

// Logger returns the global logger.
func Logger() *slog.Logger {
	return current.Load()
}

// With returns the global logger with the given attributes attached.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// WithRequestID returns a context whose log records carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(orBackground(ctx), requestIDKey{}, id)
}

// RequestID extracts the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func Debug(ctx context.Context, msg string, args ...any) {
	Logger().DebugContext(orBackground(ctx), msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	Logger().InfoContext(orBackground(ctx), msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	Logger().WarnContext(orBackground(ctx), msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	Logger().ErrorContext(orBackground(ctx), msg, args...)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
