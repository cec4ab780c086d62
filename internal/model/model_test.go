package model

import (
	"testing"
	"time"
)

func TestWithTimesDerivesExactHours(t *testing.T) {
	base := time.Date(2024, 6, 24, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		dur  time.Duration
		want float64
	}{
		{1 * time.Hour, 1},
		{8 * time.Hour, 8},
		{90 * time.Minute, 1.5},
		{100 * time.Minute, 1.67},
		{0, 0},
		{24 * time.Hour, 24},
	}
	for _, tc := range cases {
		ev := Event{Title: "x"}.WithTimes(base, base.Add(tc.dur))
		if ev.DurationHours != tc.want {
			t.Errorf("WithTimes(+%v): DurationHours = %v, want %v", tc.dur, ev.DurationHours, tc.want)
		}
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	base := time.Date(2024, 6, 24, 9, 0, 0, 0, time.UTC)
	ev := Event{Start: base, End: base.Add(-time.Minute)}
	if err := ev.Validate(); err == nil {
		t.Fatal("Validate accepted end before start")
	}
	if err := (Event{Start: base, End: base}).Validate(); err != nil {
		t.Fatalf("Validate rejected zero-length event: %v", err)
	}
}

func TestWireTimeRoundTrip(t *testing.T) {
	x := time.Date(2024, 6, 24, 18, 30, 0, 0, time.UTC)
	s := FormatWireTime(x)
	if s != "2024-06-24T18:30:00" {
		t.Fatalf("FormatWireTime = %q", s)
	}
	back, err := ParseWireTime(s)
	if err != nil {
		t.Fatalf("ParseWireTime: %v", err)
	}
	if !back.Equal(x) {
		t.Fatalf("round trip = %v, want %v", back, x)
	}
}

func TestParseWireTimeAcceptsRFC3339Fallback(t *testing.T) {
	back, err := ParseWireTime("2024-06-24T18:30:00Z")
	if err != nil {
		t.Fatalf("ParseWireTime: %v", err)
	}
	want := time.Date(2024, 6, 24, 18, 30, 0, 0, time.UTC)
	if !back.Equal(want) {
		t.Fatalf("parsed = %v, want %v", back, want)
	}
}

func TestParseWireTimeRejectsGarbage(t *testing.T) {
	if _, err := ParseWireTime("yesterday-ish"); err == nil {
		t.Fatal("ParseWireTime accepted garbage")
	}
}
