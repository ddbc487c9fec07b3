package clock_test

import (
	"testing"
	"time"

	"pomo/internal/platform/clock"
)

func TestManualClockNeverMovesBackwards(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)

	if got := clk.Advance(90 * time.Second); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("advance: got %s", got)
	}
	clk.Set(start)
	if got := clk.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("set to an earlier instant must be ignored, got %s", got)
	}
	clk.Advance(-time.Minute)
	if got := clk.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("negative advance must be ignored, got %s", got)
	}
}

func TestSystemClockIsUTC(t *testing.T) {
	t.Parallel()
	if loc := (clock.SystemClock{}).Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %s", loc)
	}
}
