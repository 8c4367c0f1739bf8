// internal/logger/pretty.go
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("%s[%s]%s", ColorRed+ColorBold, level.CapitalString(), ColorReset))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// FormatMessage turns well-known log lines into short human summaries.
// Unknown messages are returned unchanged.
func FormatMessage(msg string, fields ...zapcore.Field) string {
	switch {
	case strings.HasPrefix(msg, "Buy settled"):
		return fmt.Sprintf("%s🟢 Buy %s: %s lamports -> %s tokens%s", ColorGreen,
			shortenAddress(extractField(fields, "mint")), extractField(fields, "sol_in"), extractField(fields, "tokens_out"), ColorReset)

	case strings.HasPrefix(msg, "Sell settled"):
		return fmt.Sprintf("%s🔴 Sell %s: %s tokens -> %s lamports%s", ColorYellow,
			shortenAddress(extractField(fields, "mint")), extractField(fields, "tokens_in"), extractField(fields, "net_out"), ColorReset)

	case strings.HasPrefix(msg, "Asset created"):
		return fmt.Sprintf("%s✨ New asset %s (%s)%s", ColorBlue,
			extractField(fields, "symbol"), shortenAddress(extractField(fields, "mint")), ColorReset)

	case strings.HasPrefix(msg, "Trade rejected"):
		return fmt.Sprintf("%s⚠ Trade rejected on %s: %s%s", ColorYellow,
			shortenAddress(extractField(fields, "mint")), extractField(fields, "error"), ColorReset)

	case strings.HasPrefix(msg, "Tasks loaded"):
		return fmt.Sprintf("%s📋 Loaded %s tasks%s", ColorBlue, extractField(fields, "count"), ColorReset)

	case strings.HasPrefix(msg, "Task channel closed"):
		return fmt.Sprintf("%s✓ All tasks completed%s", ColorGreen, ColorReset)

	default:
		return msg
	}
}

func extractField(fields []zapcore.Field, key string) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == key {
			f.AddTo(enc)
			return fmt.Sprintf("%v", enc.Fields[key])
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// prettyCore rewrites messages with FormatMessage and drops their fields.
type prettyCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *prettyCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *prettyCore) With(fields []zapcore.Field) zapcore.Core {
	return &prettyCore{core: c.core, fields: append(append([]zapcore.Field{}, c.fields...), fields...)}
}

func (c *prettyCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *prettyCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field{}, c.fields...), fields...)
	entry.Message = FormatMessage(entry.Message, all...)
	return c.core.Write(entry, nil)
}

func (c *prettyCore) Sync() error {
	return c.core.Sync()
}

// NewPretty creates a console-only pretty logger.
func NewPretty(debug bool, sink zapcore.WriteSyncer) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.New(&prettyCore{core: zapcore.NewCore(PrettyEncoder(), sink, level)})
}
