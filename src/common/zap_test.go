package common

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	for raw, want := range map[string]zapcore.Level{
		"debug":    zapcore.DebugLevel,
		"warn":     zapcore.WarnLevel,
		"":         zapcore.InfoLevel,
		"verbose?": zapcore.InfoLevel,
	} {
		if got := ParseLogLevel(raw); got != want {
			t.Fatalf("level for `%s` off: got %s, want %s", raw, got, want)
		}
	}
}
