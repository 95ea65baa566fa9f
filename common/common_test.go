package common

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32{}) != nil {
		t.Error("empty slice should map to nil")
	}
	if got := len(SliceToBytes([]float32{1, 2, 3})); got != 12 {
		t.Errorf("len = %d, want 12", got)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		in   []int
		want int
	}{
		{[]int{0, 0, 3, 4}, 3},
		{[]int{5}, 5},
		{[]int{0, 0}, 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := Coalesce(tt.in...); got != tt.want {
			t.Errorf("Coalesce(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("default logger should be disabled")
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Info("hello", "joints", 3)
	if !strings.Contains(buf.String(), "joints=3") {
		t.Errorf("log output %q missing attribute", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}
