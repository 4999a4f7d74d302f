package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestGetAndNamed(t *testing.T) {
	if Get() == nil {
		t.Fatal("expected a root logger")
	}
	if Named("") != Get() {
		t.Error("expected empty component to return the root logger")
	}
	if Named("vision") == nil {
		t.Error("expected a named logger")
	}
}

func TestNop(t *testing.T) {
	if Nop().GetLevel() != zerolog.Disabled {
		t.Error("expected nop logger to be disabled")
	}
}
