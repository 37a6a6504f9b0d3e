package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToZapLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		DebugLevel: "debug",
		InfoLevel:  "info",
		WarnLevel:  "warn",
		ErrorLevel: "error",
		"bogus":    "debug",
	}
	for in, want := range cases {
		if got := toZapLevel(in).String(); got != want {
			t.Fatalf("toZapLevel(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	t.Parallel()

	l := New(Options{Level: InfoLevel})
	if l.Level() != "info" {
		t.Fatalf("initial level: %s", l.Level())
	}
	l.SetLevel(ErrorLevel)
	if l.Level() != "error" {
		t.Fatalf("level after SetLevel: %s", l.Level())
	}
}

func TestNew_WritesRotatedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.log")
	l := New(Options{Level: InfoLevel, File: path, MaxSizeMB: 1})
	l.Infow("events_written", "count", 3)
	l.Debugw("hidden_below_level")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"msg":"events_written"`) || !strings.Contains(out, `"count":3`) {
		t.Fatalf("unexpected log file content: %s", out)
	}
	if strings.Contains(out, "hidden_below_level") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
}
