// Package obslog is the sandbox's lazily-initialized debug logger,
// following the teacher's env-var-gated logger in service/debugger_service.go:
// logging is silent by default and only turns on when EMBIVE_DEBUG is set,
// optionally redirecting to a file named by EMBIVE_DEBUG_FILE.
package obslog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// Get returns the process-wide debug logger, building it on first use
// from the EMBIVE_DEBUG/EMBIVE_DEBUG_FILE environment variables.
func Get() *zap.Logger {
	once.Do(func() {
		logger = build(os.Getenv("EMBIVE_DEBUG") != "", os.Getenv("EMBIVE_DEBUG_FILE"))
	})
	return logger
}

// New builds a logger explicitly, independent of the process-wide
// env-gated singleton, for callers that decide whether to trace from
// their own configuration (e.g. the CLI harness's trace.enabled TOML
// key) rather than the environment.
func New(enabled bool, path string) *zap.Logger {
	return build(enabled, path)
}

func build(enabled bool, path string) *zap.Logger {
	if !enabled {
		return zap.NewNop()
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	var sink zapcore.WriteSyncer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, zapcore.DebugLevel)
	return zap.New(core)
}
