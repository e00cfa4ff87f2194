package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/sontaku-scheduler/internal/ai"
	"github.com/spigell/sontaku-scheduler/internal/scheduler"
	"github.com/spigell/sontaku-scheduler/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Extractor asks Gemini to turn a candidate's free-text availability into the
// structured constraints the scheduling engine consumes.
type Extractor struct {
	generator  contentGenerator
	logger     *zap.Logger
	maxRetries int
	maxLogLen  int
	now        func() time.Time
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultInstructions = "none"
	retryBackoff        = 2 * time.Second
)

func NewExtractor(generator contentGenerator, logger *zap.Logger, maxRetries, maxLogLength int) *Extractor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator:  generator,
		logger:     logger,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
		now:        time.Now,
	}
}

// Extract sends the availability text to Gemini and parses the response
// permissively: any subset of the schema may be missing or mistyped and still
// yields usable constraints. Only a completely unparseable response counts as
// a failed attempt; attempts are retried with a linear backoff.
func (e *Extractor) Extract(ctx context.Context, text, instructions string) (*ai.Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("availability text is required")
	}

	prompt := buildPrompt(text, instructions, e.now())

	e.logger.Debug("gemini extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("input_preview", utils.TruncateForLog(text, e.maxLogLen)),
	)

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			e.logger.Warn("retrying constraint extraction",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, time.Duration(attempt)*retryBackoff); err != nil {
				return nil, err
			}
		}

		raw, err := e.generator.GenerateJSON(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		e.logger.Debug("gemini extraction response",
			zap.Int("response_length", utf8.RuneCountInString(raw)),
			zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
		)

		constraints, err := parseResponse(raw)
		if err != nil {
			lastErr = err
			continue
		}

		return &ai.Extraction{Constraints: constraints, Raw: raw}, nil
	}

	return nil, fmt.Errorf("extract constraints: %w", lastErr)
}

func buildPrompt(text, instructions string, today time.Time) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Today is {{TODAY}}.\nInstructions: {{INSTRUCTIONS}}\nInput Text: \"{{INPUT}}\"\nJSON Response:"
	}

	if instructions = strings.TrimSpace(instructions); instructions == "" {
		instructions = defaultInstructions
	}

	prompt := strings.ReplaceAll(template, "{{TODAY}}", today.Format("Mon Jan 2 2006"))
	prompt = strings.ReplaceAll(prompt, "{{INSTRUCTIONS}}", instructions)
	prompt = strings.ReplaceAll(prompt, "{{INPUT}}", text)

	return prompt
}

func parseResponse(raw string) (*scheduler.Constraints, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	c := &scheduler.Constraints{
		PreferredDays:        coerceStringSlice(data["preferred_days"]),
		SpecificDates:        coerceStringSlice(data["specific_dates"]),
		TimeRanges:           coerceTimeRanges(data["time_ranges"]),
		ExcludedPeriods:      coerceExcludedPeriods(data["excluded_periods"]),
		LunchBreakPolicy:     coerceLunchPolicy(data["lunch_break_policy"]),
		BufferTimePreference: coerceBool(data["buffer_time_preference"]),
		RawAnalysis:          coerceString(data["raw_analysis"]),
		FormalMessage:        coerceString(data["formal_message_japanese"]),
	}

	return c, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceLunchPolicy(v any) scheduler.LunchPolicy {
	switch scheduler.LunchPolicy(strings.ToLower(coerceString(v))) {
	case scheduler.LunchAvoid:
		return scheduler.LunchAvoid
	case scheduler.LunchAllow:
		return scheduler.LunchAllow
	case scheduler.LunchPreferred:
		return scheduler.LunchPreferred
	case scheduler.LunchNone:
		return scheduler.LunchNone
	default:
		// Unknown values degrade to "no stated preference".
		return ""
	}
}

func coerceTimeRanges(v any) []scheduler.TimeRange {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	ranges := make([]scheduler.TimeRange, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := scheduler.TimeRange{
			Start: coerceString(entry["start"]),
			End:   coerceString(entry["end"]),
		}
		if r.Start == "" || r.End == "" {
			continue
		}
		ranges = append(ranges, r)
	}

	return ranges
}

func coerceExcludedPeriods(v any) []scheduler.ExcludedPeriod {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	periods := make([]scheduler.ExcludedPeriod, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := scheduler.ExcludedPeriod{
			Description: coerceString(entry["description"]),
			Start:       coerceString(entry["start"]),
			End:         coerceString(entry["end"]),
		}
		if p.Description == "" && p.Start == "" && p.End == "" {
			continue
		}
		periods = append(periods, p)
	}

	return periods
}

func coerceStringSlice(v any) []string {
	switch items := v.(type) {
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return items
	case string:
		if s := strings.TrimSpace(items); s != "" {
			return []string{s}
		}
		return nil
	default:
		return nil
	}
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
