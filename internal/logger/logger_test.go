package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		level      string
		want       zapcore.Level
		wantErr    bool
	}{
		{"dev default", false, "", zapcore.InfoLevel, false},
		{"dev debug", false, "debug", zapcore.DebugLevel, false},
		{"prod warn", true, "warn", zapcore.WarnLevel, false},
		{"bad level", true, "loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.production, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !log.Core().Enabled(tt.want) {
				t.Fatalf("level %v not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && log.Core().Enabled(tt.want-1) {
				t.Fatalf("level %v enabled below %v", tt.want-1, tt.want)
			}
		})
	}
}
