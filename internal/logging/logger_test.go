package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, _, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
	if _, _, err := ParseLevel("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewToFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewTo(&buf, "warn")
	if err != nil {
		t.Fatalf("NewTo: %v", err)
	}
	log.Info("hidden progress")
	log.Error(nil, "visible failure", "project", "kener")
	out := buf.String()
	if strings.Contains(out, "hidden progress") {
		t.Fatalf("info line should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "visible failure") || !strings.Contains(out, "kener") {
		t.Fatalf("error line missing:\n%s", out)
	}
}
