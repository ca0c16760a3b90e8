package capacity

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "9:00", wantErr: true},
		{in: "09-00", wantErr: true},
		{in: "0900", wantErr: true},
		{in: "", wantErr: true},
		{in: "morning", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				var clockErr *ClockError
				if !errors.As(err, &clockErr) {
					t.Fatalf("expected *ClockError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "13:30", "23:59"} {
		minutes, err := ParseClock(s)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", s, err)
		}
		if got := FormatClock(minutes); got != s {
			t.Errorf("FormatClock(ParseClock(%q)) = %q", s, got)
		}
	}
}

func TestClockAt(t *testing.T) {
	date := time.Date(2025, 6, 6, 15, 42, 7, 0, time.UTC)
	got := ClockAt(date, 570)
	want := time.Date(2025, 6, 6, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ClockAt = %v, want %v", got, want)
	}
}
