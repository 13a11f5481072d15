package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DropFunc decides whether an entry is suppressed.
type DropFunc func(zapcore.Entry) bool

type filterCore struct {
	zapcore.Core
	drop DropFunc
}

func (c *filterCore) With(fields []zapcore.Field) zapcore.Core {
	return &filterCore{Core: c.Core.With(fields), drop: c.drop}
}

func (c *filterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.drop(ent) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// Filtered returns a child of log that drops entries matching drop.
// log itself is left untouched, so filters never leak between callers
// and can be nested freely.
func Filtered(log *zap.Logger, drop DropFunc) *zap.Logger {
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &filterCore{Core: core, drop: drop}
	}))
}

// DropPrefixes matches entries below warn level whose message starts with any of prefixes.
func DropPrefixes(prefixes ...string) DropFunc {
	return func(ent zapcore.Entry) bool {
		if ent.Level >= zapcore.WarnLevel {
			return false
		}
		for _, p := range prefixes {
			if strings.HasPrefix(ent.Message, p) {
				return true
			}
		}
		return false
	}
}
