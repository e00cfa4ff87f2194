package scheduler

import "time"

// Interval is a half-open [Start, End) time range. Busy intervals supplied by
// calendar providers use this shape.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval has positive length.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether the two intervals share any time. Endpoints are
// exclusive: back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// sanitizeBusy drops malformed intervals (end not after start) so they can
// never wedge the search. The data comes from external calendars and is not
// trusted to be well-formed.
func sanitizeBusy(busy []Interval) []Interval {
	out := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.Valid() {
			out = append(out, b)
		}
	}

	return out
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}

	return false
}
