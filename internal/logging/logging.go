// Package logging builds the service logger. Every entry passes
// through a redacting core that masks PII before it reaches a sink,
// and the event helpers sanitize structured payloads before they are
// logged at all.
package logging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Patterns are applied in order; earlier kinds claim overlapping
// text.
var piiPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"EMAIL", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"PHONE", regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)},
	{"PHONE", regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.]?\d{4}`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"CARD", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{"IP", regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)},
}

// Redact masks every PII occurrence in s.
func Redact(s string) string {
	for _, p := range piiPatterns {
		s = p.re.ReplaceAllString(s, "[REDACTED-"+p.kind+"]")
	}
	return s
}

// redactingCore rewrites messages and string fields on their way to
// the wrapped core.
type redactingCore struct {
	zapcore.Core
}

func (c redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c redactingCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c redactingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = Redact(entry.Message)
	return c.Core.Write(entry, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	copy(out, fields)
	for i := range out {
		if out[i].Type == zapcore.StringType {
			out[i].String = Redact(out[i].String)
		}
	}
	return out
}

// New builds the production logger at the given level with redaction
// applied to every entry.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return redactingCore{Core: core}
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Event logs a named service event with a sanitized payload.
func Event(log *zap.Logger, event string, data map[string]any) {
	sanitized := Sanitize(data)
	keys := make([]string, 0, len(sanitized))
	for k := range sanitized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, sanitized[k]))
	}
	log.Info(event, fields...)
}

var sensitiveKeySubstrings = []string{"email", "phone", "ssn", "address", "name"}

// Sanitize rewrites an event payload so it is safe to log or persist.
// Sensitive keys are masked, identifiers and free text truncated, and
// long lists summarized. Numbers and booleans pass unchanged.
func Sanitize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = sanitizeValue(k, v)
	}
	return out
}

func sanitizeValue(key string, value any) any {
	// Identifier keys are checked before the sensitive-substring
	// sweep, otherwise "filename" would trip on "name".
	if key == "document_id" || key == "filename" {
		if s, ok := value.(string); ok {
			return truncate(s, 50)
		}
	}

	keyLower := strings.ToLower(key)
	for _, sub := range sensitiveKeySubstrings {
		if !strings.Contains(keyLower, sub) {
			continue
		}
		if s, ok := value.(string); ok {
			return fmt.Sprintf("[REDACTED_%d_CHARS]", len(s))
		}
		return "[REDACTED]"
	}

	switch v := value.(type) {
	case string:
		if key == "error" || key == "detail" {
			return truncate(v, 200)
		}
		return truncate(Redact(v), 100)
	case bool, int, int32, int64, uint, uint64, float32, float64:
		return v
	case map[string]any:
		return Sanitize(v)
	case []string:
		if len(v) > 5 {
			return fmt.Sprintf("[LIST_%d_ITEMS]", len(v))
		}
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = truncate(Redact(s), 100)
		}
		return out
	case []any:
		return sanitizeList(v)
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
		return sanitizeList(items)
	case nil:
		return nil
	default:
		return fmt.Sprintf("[%T]", value)
	}
}

func sanitizeList(items []any) any {
	if len(items) > 5 {
		return fmt.Sprintf("[LIST_%d_ITEMS]", len(items))
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = sanitizeValue("", item)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
