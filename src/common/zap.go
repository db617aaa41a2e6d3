package common

import (
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConfigureZap builds the root console logger. Subsystems derive their own
// with logger.Named so every line carries its origin.
func ConfigureZap(level zapcore.Level) *zap.Logger {
	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.RFC3339TimeEncoder
	pe.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(pe)

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(colorable.NewColorableStdout()), level)
	return zap.New(core).Named("fusiond")
}

// ParseLogLevel maps a config string onto a zap level. Empty or unknown
// strings fall back to info.
func ParseLogLevel(raw string) zapcore.Level {
	if raw == "" {
		return zap.InfoLevel
	}
	lvl, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zap.InfoLevel
	}
	return lvl
}
