package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "***"

// sensitiveKeys are field names whose values never reach a log sink.
var sensitiveKeys = map[string]struct{}{
	"password":       {},
	"token":          {},
	"session_id":     {},
	"api_key":        {},
	"llm_api_key":    {},
	"gemini_api_key": {},
	"session_key":    {},
}

func OpenLogFile(logFile string) (*os.File, error) {
	logFile = strings.TrimSpace(logFile)
	if logFile == "" {
		return nil, nil
	}
	if dir := filepath.Dir(logFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// Attach tees base into file as JSON and masks credential fields in both
// sinks. Without debug the console only shows warnings and errors so command
// output is not interleaved with request logs.
func Attach(base *zap.Logger, file *os.File, debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		if !debug {
			core = quiet(core)
		}
		core = redactCore{Core: core}
		if file == nil {
			return core
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level)
		return zapcore.NewTee(core, redactCore{Core: fileCore})
	}))
}

func quiet(core zapcore.Core) zapcore.Core {
	filtered, err := zapcore.NewIncreaseLevelCore(core, zap.WarnLevel)
	if err != nil {
		return core
	}
	return filtered
}

type redactCore struct {
	zapcore.Core
}

func (c redactCore) With(fields []zapcore.Field) zapcore.Core {
	return redactCore{Core: c.Core.With(redact(fields))}
}

func (c redactCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c redactCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, redact(fields))
}

func redact(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if _, ok := sensitiveKeys[strings.ToLower(f.Key)]; !ok {
			continue
		}
		if out == nil {
			out = append([]zapcore.Field(nil), fields...)
		}
		out[i] = zap.String(f.Key, redacted)
	}
	if out == nil {
		return fields
	}
	return out
}
