package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// LunchPolicy governs how candidate slots overlapping the midday window are scored.
type LunchPolicy string

const (
	// LunchAvoid penalizes slots that touch the lunch window and rewards the rest.
	LunchAvoid LunchPolicy = "avoid"
	// LunchAllow records that a slot overlaps lunch without changing its score.
	LunchAllow LunchPolicy = "allow"
	// LunchPreferred rewards lunch-time slots (lunch meetings welcome).
	LunchPreferred LunchPolicy = "preferred"
	// LunchNone gives a small bonus to lunch-time slots (no preference stated).
	LunchNone LunchPolicy = "none"
)

// An empty or unknown policy fires no lunch rule at all. That is the documented
// default: without a stated preference the midday window is scored like any
// other time of day.

// TimeOfDay is a minute-of-day clock value, rendered as "HH:MM" in
// configuration and extracted constraints.
type TimeOfDay int

// ParseTimeOfDay parses a "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}

	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// At anchors the clock value on the given calendar day, in that day's location.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(t)/60, int(t)%60, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// TimeRange is an allowed intraday window in "HH:MM" form.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExcludedPeriod is an informational exclusion reported by the extractor. The
// engine does not enforce it beyond what is already encoded in TimeRanges and
// the lunch policy; it is carried for presentation.
type ExcludedPeriod struct {
	Description string `json:"description"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
}

// Constraints is the structured availability statement produced by the
// extractor. Any subset of fields may be absent; missing fields mean
// "unconstrained".
type Constraints struct {
	PreferredDays        []string         `json:"preferred_days"`
	SpecificDates        []string         `json:"specific_dates"`
	TimeRanges           []TimeRange      `json:"time_ranges"`
	ExcludedPeriods      []ExcludedPeriod `json:"excluded_periods"`
	LunchBreakPolicy     LunchPolicy      `json:"lunch_break_policy"`
	BufferTimePreference bool             `json:"buffer_time_preference"`
	RawAnalysis          string           `json:"raw_analysis,omitempty"`
	FormalMessage        string           `json:"formal_message_japanese,omitempty"`
}

// todRange is a parsed, validated TimeRange.
type todRange struct {
	start TimeOfDay
	end   TimeOfDay
}

// searchConstraints is the engine-internal, fully normalized view of
// Constraints: nil receiver and malformed entries degrade to "unconstrained"
// instead of erroring.
type searchConstraints struct {
	specificDates map[string]struct{}
	preferredDays []string
	timeRanges    []todRange
	lunchPolicy   LunchPolicy
}

func normalizeConstraints(c *Constraints) *searchConstraints {
	n := &searchConstraints{}
	if c == nil {
		return n
	}

	for _, d := range c.SpecificDates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if n.specificDates == nil {
			n.specificDates = make(map[string]struct{})
		}
		n.specificDates[d] = struct{}{}
	}

	for _, d := range c.PreferredDays {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		n.preferredDays = append(n.preferredDays, d)
	}

	// Individually malformed ranges are dropped. When every range is
	// malformed the engine behaves as if no time restriction was stated.
	for _, r := range c.TimeRanges {
		start, err := ParseTimeOfDay(r.Start)
		if err != nil {
			continue
		}
		end, err := ParseTimeOfDay(r.End)
		if err != nil || end <= start {
			continue
		}
		n.timeRanges = append(n.timeRanges, todRange{start: start, end: end})
	}

	n.lunchPolicy = c.LunchBreakPolicy

	return n
}

// dayAllowed applies the strict-pass date filter: specific dates win over
// preferred weekdays, and preferred weekdays match case-insensitively as
// substrings ("mon" matches Monday).
func (c *searchConstraints) dayAllowed(day time.Time) bool {
	if len(c.specificDates) > 0 {
		_, ok := c.specificDates[day.Format("2006-01-02")]
		return ok
	}

	if len(c.preferredDays) > 0 {
		name := strings.ToLower(day.Weekday().String())
		for _, pd := range c.preferredDays {
			if strings.Contains(name, pd) {
				return true
			}
		}
		return false
	}

	return true
}

// inRange reports whether [start, end] is fully contained in at least one
// declared time range of the given day.
func (c *searchConstraints) inRange(start, end, day time.Time) bool {
	for _, r := range c.timeRanges {
		rStart := r.start.At(day)
		rEnd := r.end.At(day)
		if !start.Before(rStart) && !end.After(rEnd) {
			return true
		}
	}

	return false
}
