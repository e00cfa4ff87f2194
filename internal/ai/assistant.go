package ai

import (
	"context"

	"github.com/spigell/sontaku-scheduler/internal/scheduler"
)

// Extraction is the structured result of reading a candidate's free-text
// availability statement.
type Extraction struct {
	Constraints *scheduler.Constraints
	// Raw is the unprocessed model response, kept for debugging and audits.
	Raw string
}

// Extractor turns free-text availability into scheduling constraints.
// Instructions carry organizer-provided guidance (tone, days to ignore) that
// the provider reflects in the extraction and the polite reply.
type Extractor interface {
	Extract(ctx context.Context, text, instructions string) (*Extraction, error)
}

// FallbackConstraints returns the conservative constraints used when
// extraction fails entirely: weekdays only, 10:00-18:00, lunch kept free,
// buffer preferred. Proposing something sensible beats proposing nothing.
func FallbackConstraints() *scheduler.Constraints {
	return &scheduler.Constraints{
		PreferredDays:        []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		TimeRanges:           []scheduler.TimeRange{{Start: "10:00", End: "18:00"}},
		LunchBreakPolicy:     scheduler.LunchAvoid,
		BufferTimePreference: true,
		RawAnalysis:          "extraction failed, using default constraints",
	}
}
