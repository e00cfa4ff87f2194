package cmd

import (
	"testing"

	"github.com/spigell/sontaku-scheduler/internal/scheduler"
)

func TestSearchConfigDefaults(t *testing.T) {
	search, err := searchConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if search.WorkdayStart != scheduler.DefaultWorkdayStart {
		t.Fatalf("expected default workday start, got %v", search.WorkdayStart)
	}
	if search.HorizonDays != scheduler.DefaultHorizonDays {
		t.Fatalf("expected default horizon, got %d", search.HorizonDays)
	}
	if len(search.PostFilters) != 0 {
		t.Fatalf("expected no post filters by default")
	}
}

func TestSearchConfigOverrides(t *testing.T) {
	search, err := searchConfig(&SchedulerConfig{
		WorkdayStart:   "10:00",
		WorkdayEnd:     "19:00",
		HorizonDays:    7,
		StepMinutes:    30,
		MaxResults:     3,
		DedupeOverlaps: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if search.WorkdayStart != scheduler.TimeOfDay(10*60) {
		t.Fatalf("unexpected workday start: %v", search.WorkdayStart)
	}
	if search.WorkdayEnd != scheduler.TimeOfDay(19*60) {
		t.Fatalf("unexpected workday end: %v", search.WorkdayEnd)
	}
	if search.HorizonDays != 7 || search.StepMinutes != 30 || search.MaxResults != 3 {
		t.Fatalf("unexpected numeric overrides: %+v", search)
	}
	if len(search.PostFilters) != 1 {
		t.Fatalf("expected overlap dedupe post filter")
	}
	// Lunch window keeps the engine default when unset.
	if search.LunchStart != scheduler.DefaultLunchStart {
		t.Fatalf("unexpected lunch start: %v", search.LunchStart)
	}
}

func TestSearchConfigInvalidTime(t *testing.T) {
	if _, err := searchConfig(&SchedulerConfig{WorkdayStart: "9am"}); err == nil {
		t.Fatalf("expected error for unparseable time")
	}
}
