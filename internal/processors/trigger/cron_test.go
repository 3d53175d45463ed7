package trigger

import (
	"context"
	"testing"
	"time"
)

func TestCronProcessorValidate(t *testing.T) {
	cases := []struct {
		schedule string
		timezone string
		ok       bool
	}{
		{"0 9 * * *", "", true},
		{"@every 1h", "Asia/Kolkata", true},
		{"", "", false},
		{"not a cron", "", false},
		{"0 9 * * *", "Mars/Olympus", false},
	}
	for _, tc := range cases {
		err := NewCronProcessor(tc.schedule, tc.timezone).Validate()
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%q, %q) err=%v, want ok=%v", tc.schedule, tc.timezone, err, tc.ok)
		}
	}
}

func TestCronProcessorNext(t *testing.T) {
	c := NewCronProcessor("30 9 * * *", "")
	from := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	next, err := c.Next(from)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %s, want %s", next, want)
	}
}

func TestCronProcessorDropsTicksWhileBusy(t *testing.T) {
	c := NewCronProcessor("@every 1h", "")
	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	now := time.Now().UTC()
	c.emit(now)
	c.emit(now.Add(time.Second))

	event := <-events
	if !event.Timestamp.Equal(now) {
		t.Fatalf("expected first tick to be delivered")
	}
	select {
	case extra := <-events:
		t.Fatalf("expected second tick to be dropped, got %v", extra)
	default:
	}

	cancel()
	if _, ok := <-events; ok {
		t.Fatalf("expected channel to close after cancel")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
