package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spigell/sontaku-scheduler/internal/scheduler"
	"go.uber.org/zap"
)

type stubGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)

	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return "", err
	}

	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return s.responses[len(s.responses)-1], nil
}

func newTestExtractor(stub *stubGenerator, retries int) *Extractor {
	e := NewExtractor(stub, zap.NewNop(), retries, 0)
	e.now = func() time.Time {
		return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	}
	return e
}

func TestExtract(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{`{
		"preferred_days": ["Monday", "Friday"],
		"time_ranges": [{"start": "10:00", "end": "18:00"}],
		"excluded_periods": [{"description": "締め切り対応", "start": "09:00", "end": "10:00"}],
		"lunch_break_policy": "avoid",
		"buffer_time_preference": true,
		"raw_analysis": "weekday preference",
		"formal_message_japanese": "来週の平日であれば調整可能です。"
	}`}}

	extraction, err := newTestExtractor(stub, 0).Extract(context.Background(), "next week works, not during lunch", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := extraction.Constraints
	if len(c.PreferredDays) != 2 || c.PreferredDays[0] != "Monday" {
		t.Fatalf("unexpected preferred days: %v", c.PreferredDays)
	}
	if len(c.TimeRanges) != 1 || c.TimeRanges[0].Start != "10:00" {
		t.Fatalf("unexpected time ranges: %v", c.TimeRanges)
	}
	if len(c.ExcludedPeriods) != 1 || c.ExcludedPeriods[0].Description != "締め切り対応" {
		t.Fatalf("unexpected excluded periods: %v", c.ExcludedPeriods)
	}
	if c.LunchBreakPolicy != scheduler.LunchAvoid {
		t.Fatalf("unexpected policy: %s", c.LunchBreakPolicy)
	}
	if !c.BufferTimePreference {
		t.Fatalf("expected buffer preference")
	}
	if c.FormalMessage == "" {
		t.Fatalf("expected formal message")
	}
	if extraction.Raw == "" {
		t.Fatalf("expected raw response carried through")
	}

	prompt := stub.prompts[0]
	if !strings.Contains(prompt, `Input Text: "next week works, not during lunch"`) {
		t.Fatalf("prompt missing input text: %s", prompt)
	}
	if !strings.Contains(prompt, "Today is Sun Jun 1 2025") {
		t.Fatalf("prompt missing injected date: %s", prompt)
	}
	if !strings.Contains(prompt, `"none"`) {
		t.Fatalf("prompt missing default instructions placeholder: %s", prompt)
	}
}

func TestExtractPassesCustomInstructions(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{`{}`}}

	_, err := newTestExtractor(stub, 0).Extract(context.Background(), "anytime", "  ignore Fridays  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stub.prompts[0], `"ignore Fridays"`) {
		t.Fatalf("prompt missing trimmed instructions: %s", stub.prompts[0])
	}
}

func TestExtractStripsMarkdownFences(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{"```json\n{\"lunch_break_policy\": \"preferred\"}\n```"}}

	extraction, err := newTestExtractor(stub, 0).Extract(context.Background(), "lunch meetings are great", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extraction.Constraints.LunchBreakPolicy != scheduler.LunchPreferred {
		t.Fatalf("unexpected policy: %s", extraction.Constraints.LunchBreakPolicy)
	}
}

func TestExtractCoercesLooseTypes(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{`{
		"preferred_days": "Monday",
		"lunch_break_policy": "AVOID",
		"buffer_time_preference": "yes",
		"time_ranges": [{"start": "10:00"}, "not-an-object"]
	}`}}

	extraction, err := newTestExtractor(stub, 0).Extract(context.Background(), "monday please", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := extraction.Constraints
	if len(c.PreferredDays) != 1 || c.PreferredDays[0] != "Monday" {
		t.Fatalf("expected single-string day coerced to slice, got %v", c.PreferredDays)
	}
	if c.LunchBreakPolicy != scheduler.LunchAvoid {
		t.Fatalf("expected case-insensitive policy, got %s", c.LunchBreakPolicy)
	}
	if !c.BufferTimePreference {
		t.Fatalf("expected 'yes' coerced to true")
	}
	if len(c.TimeRanges) != 0 {
		t.Fatalf("expected incomplete ranges dropped, got %v", c.TimeRanges)
	}
}

func TestExtractUnknownPolicyDegrades(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{`{"lunch_break_policy": "sometimes"}`}}

	extraction, err := newTestExtractor(stub, 0).Extract(context.Background(), "whenever", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extraction.Constraints.LunchBreakPolicy != "" {
		t.Fatalf("expected unknown policy dropped, got %q", extraction.Constraints.LunchBreakPolicy)
	}
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{
		errs:      []error{errors.New("rate limited"), nil},
		responses: []string{"", `{"lunch_break_policy": "allow"}`},
	}

	extraction, err := newTestExtractor(stub, 2).Extract(context.Background(), "anytime", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", stub.calls)
	}
	if extraction.Constraints.LunchBreakPolicy != scheduler.LunchAllow {
		t.Fatalf("unexpected policy: %s", extraction.Constraints.LunchBreakPolicy)
	}
}

func TestExtractExhaustsRetries(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{"this is not json"}}

	_, err := newTestExtractor(stub, 1).Extract(context.Background(), "anytime", "")
	if err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", stub.calls)
	}
	if !strings.Contains(err.Error(), "parse gemini response") {
		t.Fatalf("expected parse error to surface, got %v", err)
	}
}

func TestExtractEmptyText(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{responses: []string{`{}`}}

	if _, err := newTestExtractor(stub, 0).Extract(context.Background(), "   ", ""); err == nil {
		t.Fatalf("expected error for empty availability text")
	}
	if stub.calls != 0 {
		t.Fatalf("expected no model calls for empty input")
	}
}
