package scheduler

// PostFilter is a pure transform applied to the ranked slot list after sorting
// and before truncation.
type PostFilter interface {
	Name() string
	Apply(slots []Slot) []Slot
}

type overlapDedupe struct{}

// NewOverlapDedupe creates a post-filter that keeps only the best-scored slot
// of any group of mutually overlapping candidates. The default deployment runs
// without it, surfacing adjacent start times so the recruiter can pick the
// exact one they like.
func NewOverlapDedupe() PostFilter {
	return overlapDedupe{}
}

func (overlapDedupe) Name() string { return "overlap_dedupe" }

func (overlapDedupe) Apply(slots []Slot) []Slot {
	kept := make([]Slot, 0, len(slots))

	// The input is already sorted by score, so the first slot of any
	// overlapping group is the one to keep.
	for _, s := range slots {
		candidate := Interval{Start: s.Start, End: s.End}
		overlapping := false
		for _, k := range kept {
			if candidate.Overlaps(Interval{Start: k.Start, End: k.End}) {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, s)
		}
	}

	return kept
}
