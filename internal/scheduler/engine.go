package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// Scoring deltas. Reasons carry the applied delta so a recruiter can audit why
// a slot ranked where it did.
const (
	lunchAvoidPenalty   = -50
	lunchAvoidBonus     = 20
	lunchPreferredBonus = 30
	lunchNeutralBonus   = 10
	cleanStartBonus     = 5
)

const reasonOutsidePreferred = "希望日程外"

// Defaults for SearchConfig. The workday window is 09:00-18:00; deployments
// that want a later window set WorkdayStart and WorkdayEnd in configuration.
const (
	DefaultWorkdayStart      = TimeOfDay(9 * 60)
	DefaultWorkdayEnd        = TimeOfDay(18 * 60)
	DefaultLunchStart        = TimeOfDay(12 * 60)
	DefaultLunchEnd          = TimeOfDay(13 * 60)
	DefaultHorizonDays       = 14
	DefaultStepMinutes       = 15
	DefaultMaxResults        = 5
	DefaultRelaxedBaseScore  = -100
	DefaultOutOfRangePenalty = -50
	DefaultDurationMinutes   = 60
)

// Slot is a candidate meeting window. Reasons list the scoring rules that
// fired, in evaluation order. IsFallback marks slots found only by the relaxed
// pass, outside the candidate's stated preferences.
type Slot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Score      int       `json:"score"`
	Reasons    []string  `json:"reasons"`
	IsFallback bool      `json:"is_fallback"`
}

// SearchConfig carries every tunable of the search. Zero values fall back to
// the package defaults, so SearchConfig{} behaves like DefaultSearchConfig().
type SearchConfig struct {
	WorkdayStart TimeOfDay
	WorkdayEnd   TimeOfDay
	HorizonDays  int
	StepMinutes  int
	LunchStart   TimeOfDay
	LunchEnd     TimeOfDay
	// RelaxedBaseScore is the starting score of relaxed-pass slots.
	RelaxedBaseScore int
	// OutOfRangePenalty is applied in the relaxed pass to slots outside every
	// declared time range (the strict pass rejects them outright).
	OutOfRangePenalty int
	MaxResults        int
	// PostFilters run after ranking and before truncation.
	PostFilters []PostFilter
	// Now anchors the search horizon; the first examined day is the day after
	// Now(). Injectable so tests and replays are deterministic.
	Now func() time.Time
}

// DefaultSearchConfig returns the stock deployment defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		WorkdayStart:      DefaultWorkdayStart,
		WorkdayEnd:        DefaultWorkdayEnd,
		HorizonDays:       DefaultHorizonDays,
		StepMinutes:       DefaultStepMinutes,
		LunchStart:        DefaultLunchStart,
		LunchEnd:          DefaultLunchEnd,
		RelaxedBaseScore:  DefaultRelaxedBaseScore,
		OutOfRangePenalty: DefaultOutOfRangePenalty,
		MaxResults:        DefaultMaxResults,
		Now:               time.Now,
	}
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.WorkdayEnd <= c.WorkdayStart {
		c.WorkdayStart = DefaultWorkdayStart
		c.WorkdayEnd = DefaultWorkdayEnd
	}
	if c.LunchEnd <= c.LunchStart {
		c.LunchStart = DefaultLunchStart
		c.LunchEnd = DefaultLunchEnd
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.StepMinutes <= 0 {
		c.StepMinutes = DefaultStepMinutes
	}
	if c.RelaxedBaseScore == 0 {
		c.RelaxedBaseScore = DefaultRelaxedBaseScore
	}
	if c.OutOfRangePenalty == 0 {
		c.OutOfRangePenalty = DefaultOutOfRangePenalty
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}

// Engine ranks candidate interview slots against extracted constraints. It is
// a pure in-memory computation: safe for concurrent use, no I/O, fresh output
// per call.
type Engine struct {
	cfg SearchConfig
}

func New(cfg SearchConfig) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Generate enumerates candidate slots of the given duration over the search
// horizon and returns the best-scored ones, at most MaxResults, sorted by
// score descending (ties keep enumeration order: earlier day, earlier time).
//
// The strict pass enforces the stated date and time-range preferences as hard
// filters. When it yields nothing, a relaxed pass re-runs the search with the
// date filter lifted and time-range misses converted into penalties, so the
// recruiter still gets something to propose. Busy-interval overlap is never
// relaxed. An empty result after both passes means the horizon is fully
// booked; that is a valid outcome, not an error.
func (e *Engine) Generate(c *Constraints, durationMinutes int, busy []Interval, lunchPolicyOverride LunchPolicy) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be a positive number of minutes, got %d", durationMinutes)
	}

	cons := normalizeConstraints(c)
	busy = sanitizeBusy(busy)

	policy := cons.lunchPolicy
	if lunchPolicyOverride != "" {
		// Organizer-level preference wins over the candidate-stated one.
		policy = lunchPolicyOverride
	}

	slots := e.findSlots(cons, durationMinutes, busy, policy, false)
	if len(slots) == 0 {
		slots = e.findSlots(cons, durationMinutes, busy, policy, true)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Score > slots[j].Score
	})

	for _, f := range e.cfg.PostFilters {
		slots = f.Apply(slots)
	}

	if len(slots) > e.cfg.MaxResults {
		slots = slots[:e.cfg.MaxResults]
	}

	return slots, nil
}

// findSlots is the single parameterized search routine behind both passes.
func (e *Engine) findSlots(cons *searchConstraints, durationMinutes int, busy []Interval, policy LunchPolicy, relaxed bool) []Slot {
	cfg := e.cfg
	now := cfg.Now()
	startDate := startOfDay(now).AddDate(0, 0, 1)
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(cfg.StepMinutes) * time.Minute

	var found []Slot

	for i := 0; i < cfg.HorizonDays; i++ {
		day := startDate.AddDate(0, 0, i)

		if !relaxed && !cons.dayAllowed(day) {
			continue
		}

		windowEnd := cfg.WorkdayEnd.At(day)
		lunch := Interval{Start: cfg.LunchStart.At(day), End: cfg.LunchEnd.At(day)}

		for start := cfg.WorkdayStart.At(day); start.Before(windowEnd); start = start.Add(step) {
			end := start.Add(duration)
			if end.After(windowEnd) {
				break
			}

			candidate := Interval{Start: start, End: end}
			if overlapsAny(candidate, busy) {
				continue
			}

			score := 0
			var reasons []string

			if relaxed {
				score = cfg.RelaxedBaseScore
				reasons = append(reasons, reasonOutsidePreferred)
			}

			if len(cons.timeRanges) > 0 && !cons.inRange(start, end, day) {
				if !relaxed {
					continue
				}
				score += cfg.OutOfRangePenalty
				reasons = append(reasons, fmt.Sprintf("時間帯外 (%+d)", cfg.OutOfRangePenalty))
			}

			score, reasons = scoreLunch(score, reasons, candidate, lunch, policy, relaxed)

			// Clean start times read better on an invite; pure tie-breaker.
			if m := start.Minute(); m == 0 || m == 30 {
				score += cleanStartBonus
			}

			found = append(found, Slot{
				Start:      start,
				End:        end,
				Score:      score,
				Reasons:    reasons,
				IsFallback: relaxed,
			})
		}
	}

	return found
}

func scoreLunch(score int, reasons []string, candidate, lunch Interval, policy LunchPolicy, relaxed bool) (int, []string) {
	overlaps := candidate.Overlaps(lunch)

	switch policy {
	case LunchAvoid:
		if overlaps {
			score += lunchAvoidPenalty
			reasons = append(reasons, fmt.Sprintf("ランチタイムに干渉 (%+d)", lunchAvoidPenalty))
		} else {
			score += lunchAvoidBonus
			if !relaxed {
				reasons = append(reasons, fmt.Sprintf("ランチタイムを考慮 (%+d)", lunchAvoidBonus))
			}
		}
	case LunchPreferred:
		if overlaps {
			score += lunchPreferredBonus
			reasons = append(reasons, fmt.Sprintf("ランチミーティング推奨 (%+d)", lunchPreferredBonus))
		}
	case LunchNone:
		if overlaps {
			score += lunchNeutralBonus
			reasons = append(reasons, fmt.Sprintf("昼食時間帯も可 (%+d)", lunchNeutralBonus))
		}
	case LunchAllow:
		if overlaps {
			reasons = append(reasons, "ランチタイム許容")
		}
	}

	return score, reasons
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
