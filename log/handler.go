package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

const termTimeFormat = "01-02|15:04:05.000"

// message column width before the key/value pairs start
const termMsgJust = 40

const (
	termColorReset   = "\x1b[0m"
	termColorRed     = "\x1b[31m"
	termColorGreen   = "\x1b[32m"
	termColorYellow  = "\x1b[33m"
	termColorBlue    = "\x1b[34m"
	termColorMagenta = "\x1b[35m"
	termColorCyan    = "\x1b[36m"
)

func levelColor(l slog.Level) string {
	switch l {
	case LevelCrit:
		return termColorMagenta
	case LevelError:
		return termColorRed
	case LevelWarn:
		return termColorYellow
	case LevelInfo:
		return termColorGreen
	case LevelDebug:
		return termColorCyan
	case LevelTrace:
		return termColorBlue
	default:
		return ""
	}
}

type discardHandler struct{}

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, r slog.Record) error {
	return nil
}

func (h *discardHandler) Enabled(_ context.Context, level slog.Level) bool {
	return false
}

func (h *discardHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *discardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// TerminalHandler prints records in human-readable single-line form:
//
//	LEVEL[month-day|time] message key=value key=value
type TerminalHandler struct {
	mu       sync.Mutex
	wr       io.Writer
	lvl      slog.Level
	useColor bool
	attrs    []slog.Attr
}

// NewTerminalHandler writes all records at or above the default level.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	return NewTerminalHandlerWithLevel(wr, levelMaxVerbosity, useColor)
}

// NewTerminalHandlerWithLevel writes records at or above the given level.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Level, useColor bool) *TerminalHandler {
	return &TerminalHandler{
		wr:       wr,
		lvl:      lvl,
		useColor: useColor,
	}
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := make([]byte, 0, 30+termMsgJust)
	lvl := LevelAlignedString(r.Level)
	if h.useColor {
		if color := levelColor(r.Level); color != "" {
			lvl = color + lvl + termColorReset
		}
	}
	buf = append(buf, lvl...)
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, termTimeFormat)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	// pad the message so the key/value pairs line up across records
	if n := len(r.Message); n < termMsgJust && (r.NumAttrs() > 0 || len(h.attrs) > 0) {
		buf = append(buf, strings.Repeat(" ", termMsgJust-n)...)
	}

	for _, attr := range h.attrs {
		buf = appendAttr(buf, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		buf = appendAttr(buf, attr)
		return true
	})
	buf = append(buf, '\n')

	_, err := h.wr.Write(buf)
	return err
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl
}

func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := append([]slog.Attr{}, h.attrs...)
	newAttrs = append(newAttrs, attrs...)
	return &TerminalHandler{
		wr:       h.wr,
		lvl:      h.lvl,
		useColor: h.useColor,
		attrs:    newAttrs,
	}
}

func appendAttr(buf []byte, attr slog.Attr) []byte {
	buf = append(buf, ' ')
	buf = append(buf, attr.Key...)
	buf = append(buf, '=')
	return appendValue(buf, attr.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " =\"") {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, s...)
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindTime:
		return v.Time().AppendFormat(buf, termTimeFormat)
	default:
		return fmt.Appendf(buf, "%v", v.Any())
	}
}
