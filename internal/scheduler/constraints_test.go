package scheduler

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{input: "09:00", want: TimeOfDay(9 * 60)},
		{input: " 18:30 ", want: TimeOfDay(18*60 + 30)},
		{input: "00:00", want: TimeOfDay(0)},
		{input: "23:59", want: TimeOfDay(23*60 + 59)},
		{input: "24:00", wantErr: true},
		{input: "9am", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTimeOfDayAtKeepsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("JST", 9*3600)
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, loc)

	got := TimeOfDay(14*60 + 30).At(day)
	if got.Hour() != 14 || got.Minute() != 30 {
		t.Fatalf("unexpected clock value: %s", got)
	}
	if got.Location() != loc {
		t.Fatalf("expected day's location to be preserved")
	}
}

func TestTimeOfDayString(t *testing.T) {
	t.Parallel()

	if s := TimeOfDay(9 * 60).String(); s != "09:00" {
		t.Fatalf("unexpected string: %s", s)
	}
	if s := TimeOfDay(18*60 + 5).String(); s != "18:05" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestNormalizeConstraintsPermissive(t *testing.T) {
	t.Parallel()

	n := normalizeConstraints(nil)
	if !n.dayAllowed(time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("nil constraints must allow every day")
	}
	if len(n.timeRanges) != 0 {
		t.Fatalf("nil constraints must carry no ranges")
	}

	n = normalizeConstraints(&Constraints{
		PreferredDays: []string{" Monday ", ""},
		SpecificDates: []string{"", " 2025-06-03 "},
		TimeRanges: []TimeRange{
			{Start: "10:00", End: "12:00"},
			{Start: "bad", End: "12:00"},
			{Start: "14:00", End: "13:00"}, // inverted, dropped
		},
	})

	if len(n.timeRanges) != 1 {
		t.Fatalf("expected one valid range, got %d", len(n.timeRanges))
	}
	if len(n.preferredDays) != 1 || n.preferredDays[0] != "monday" {
		t.Fatalf("unexpected preferred days: %v", n.preferredDays)
	}
	if _, ok := n.specificDates["2025-06-03"]; !ok {
		t.Fatalf("expected trimmed specific date")
	}
}

func TestConstraintsJSONRoundTrip(t *testing.T) {
	t.Parallel()

	// The extractor's schema must unmarshal cleanly, extra fields included.
	raw := `{
		"preferred_days": ["Monday", "Friday"],
		"specific_dates": [],
		"time_ranges": [{"start": "10:00", "end": "18:00"}],
		"excluded_periods": [{"description": "締め切り前", "start": "09:00", "end": "10:00"}],
		"lunch_break_policy": "avoid",
		"buffer_time_preference": true,
		"raw_analysis": "weekday preference",
		"formal_message_japanese": "来週の平日であれば調整可能です。"
	}`

	var c Constraints
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.LunchBreakPolicy != LunchAvoid {
		t.Fatalf("unexpected policy: %s", c.LunchBreakPolicy)
	}
	if len(c.PreferredDays) != 2 || len(c.TimeRanges) != 1 || len(c.ExcludedPeriods) != 1 {
		t.Fatalf("unexpected shape: %+v", c)
	}
	if !c.BufferTimePreference {
		t.Fatalf("expected buffer preference set")
	}
	if c.FormalMessage == "" {
		t.Fatalf("expected formal message carried through")
	}
}
