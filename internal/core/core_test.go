package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestValidID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"123", true},
		{"abc-def", true},
		{"with space", true},
		{"", false},
		{"line\nbreak", false},
		{"carriage\rreturn", false},
	}
	for _, tc := range cases {
		if got := ValidID(tc.id); got != tc.want {
			t.Fatalf("ValidID(%q)=%v want %v", tc.id, got, tc.want)
		}
	}
}

func TestRunFatalResult(t *testing.T) {
	run := &Run{}
	run.Record(Success(StageLoad))
	run.Record(Recoverable(StageFetch, errors.New("timeout")))
	if _, ok := run.FatalResult(); ok {
		t.Fatalf("expected no fatal result")
	}
	run.Record(Fatal(StageSave, errors.New("disk full")))
	result, ok := run.FatalResult()
	if !ok {
		t.Fatalf("expected fatal result")
	}
	if result.Stage != StageSave {
		t.Fatalf("expected save stage, got %s", result.Stage)
	}
	if !strings.Contains(result.Error(), "disk full") {
		t.Fatalf("expected error text, got %q", result.Error())
	}
}

func TestLoggerFromContextFallsBackToDefault(t *testing.T) {
	if LoggerFromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")
	ctx := WithLogger(context.Background(), logger)
	LoggerFromContext(ctx).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARN") != slog.LevelWarn {
		t.Fatalf("expected warn")
	}
	if ParseLevel("nonsense") != slog.LevelInfo {
		t.Fatalf("expected info fallback")
	}
}
