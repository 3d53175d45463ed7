package config

import (
	"testing"
	"time"
)

func TestParseDuration_DaysWeeksAndFallback(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1w2d3h", (7*24 + 2*24 + 3) * time.Hour},
		{"1.5d", 36 * time.Hour},
		{"-2w", -14 * 24 * time.Hour},
		{"20s", 20 * time.Second}, // Go fallback
	}

	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDuration(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	bad := []string{"", "   ", "3x", "2d3x", "-", "d", "2days"}
	for _, in := range bad {
		if _, err := ParseDuration(in); err == nil {
			t.Fatalf("ParseDuration(%q) expected error, got nil", in)
		}
	}
}

func TestEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SEND_TIMEOUT", "soon")
	if got := envDuration("SEND_TIMEOUT", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	t.Setenv("SEND_TIMEOUT", "1d")
	if got := envDuration("SEND_TIMEOUT", 5*time.Second); got != 24*time.Hour {
		t.Fatalf("expected 24h, got %v", got)
	}
}
