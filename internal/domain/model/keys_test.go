package model

import (
	"testing"
	"time"
)

func TestGameKey(t *testing.T) {
	if got := GameKey("g1"); got != "leaderboard:game:g1" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestGlobalKey(t *testing.T) {
	if got := GlobalKey(); got != "leaderboard:global" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDayKeyUsesUTCDate(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)

	if got := DayKey("g1", local); got != "leaderboard:game:g1:20260315" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDayStampRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	stamp := DayStamp(ts)
	if stamp != "20260102" {
		t.Fatalf("unexpected stamp %q", stamp)
	}

	parsed, err := ParseDayStamp(stamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Year() != 2026 || parsed.Month() != time.January || parsed.Day() != 2 {
		t.Errorf("unexpected parsed date %v", parsed)
	}

	if _, err := ParseDayStamp("2026-01-02"); err == nil {
		t.Error("expected error for malformed stamp")
	}
}
