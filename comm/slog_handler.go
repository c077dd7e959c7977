package comm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type slogHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*slogHandler)(nil)

// NewSlogHandler returns a slog.Handler that emits records through
// comm, so libraries logging via log/slog share burrow's output
// (including JSON-lines mode).
func NewSlogHandler(level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &slogHandler{
		level: level,
	}
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	obj := JsonMessage{
		"type":    "log",
		"time":    time.Now().UTC().Unix(),
		"level":   slogLevelToCommLevel(r.Level),
		"message": r.Message,
	}

	for _, attr := range h.attrs {
		addAttr(obj, h.groups, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		addAttr(obj, h.groups, attr)
		return true
	})

	if JsonEnabled() {
		// bypass comm's debug filtering: if a logger is enabled at
		// debug level, its records should come out in JSON mode
		sendJSON(obj)
		return nil
	}

	level, _ := obj["level"].(string)
	Logl(level, flattenRecord(obj))
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, attr := range attrs {
		merged = append(merged, prefixAttr(h.groups, attr))
	}

	return &slogHandler{
		level:  h.level,
		attrs:  merged,
		groups: h.groups,
	}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)

	return &slogHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: groups,
	}
}

func addAttr(obj JsonMessage, groups []string, attr slog.Attr) {
	attr = prefixAttr(groups, attr)
	if attr.Equal(slog.Attr{}) {
		return
	}
	obj[attr.Key] = attr.Value.Resolve().Any()
}

func prefixAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		return attr
	}
	return slog.Attr{
		Key:   strings.Join(groups, ".") + "." + attr.Key,
		Value: attr.Value,
	}
}

func flattenRecord(obj JsonMessage) string {
	var sb strings.Builder
	message, _ := obj["message"].(string)
	sb.WriteString(message)

	for key, value := range obj {
		switch key {
		case "type", "time", "level", "message":
			continue
		}
		fmt.Fprintf(&sb, " %s=%v", key, value)
	}

	return sb.String()
}

func slogLevelToCommLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warning"
	default:
		return "error"
	}
}
