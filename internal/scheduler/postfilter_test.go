package scheduler

import (
	"testing"
	"time"
)

func slotAt(hour, min, score int) Slot {
	start := time.Date(2025, time.June, 2, hour, min, 0, 0, time.UTC)
	return Slot{Start: start, End: start.Add(time.Hour), Score: score}
}

func TestOverlapDedupeKeepsBestOfOverlappingGroup(t *testing.T) {
	t.Parallel()

	// Sorted by score descending, as the engine hands them over.
	slots := []Slot{
		slotAt(10, 0, 25),
		slotAt(10, 15, 20),
		slotAt(10, 30, 20),
		slotAt(14, 0, 25),
		slotAt(14, 15, 20),
	}

	got := NewOverlapDedupe().Apply(slots)

	if len(got) != 2 {
		t.Fatalf("expected 2 slots after dedupe, got %d", len(got))
	}
	if got[0].Start.Hour() != 10 || got[0].Start.Minute() != 0 {
		t.Fatalf("expected 10:00 survivor, got %s", got[0].Start)
	}
	if got[1].Start.Hour() != 14 || got[1].Start.Minute() != 0 {
		t.Fatalf("expected 14:00 survivor, got %s", got[1].Start)
	}
}

func TestOverlapDedupeEmptyInput(t *testing.T) {
	t.Parallel()

	if got := NewOverlapDedupe().Apply(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %d", len(got))
	}
}

func TestOverlapDedupeName(t *testing.T) {
	t.Parallel()

	if NewOverlapDedupe().Name() != "overlap_dedupe" {
		t.Fatalf("unexpected name")
	}
}
