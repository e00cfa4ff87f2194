package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spigell/sontaku-scheduler/internal/ai"
	"github.com/spigell/sontaku-scheduler/internal/ai/gemini"
	"github.com/spigell/sontaku-scheduler/internal/calendar"
	"github.com/spigell/sontaku-scheduler/internal/logger"
	"github.com/spigell/sontaku-scheduler/internal/notify"
	"github.com/spigell/sontaku-scheduler/internal/scheduler"
	"github.com/spigell/sontaku-scheduler/internal/secrets"
	"github.com/spigell/sontaku-scheduler/internal/zoom"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptNone            = "None of these"
	defaultInterviewTitle = "面接"
)

var errExit = errors.New("exit requested")

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest interview slots from the candidate's availability and book the chosen one",
	Run: func(cmd *cobra.Command, _ []string) {
		suggest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringP("text", "t", "", "the candidate's availability text")
	suggestCmd.Flags().StringP("file", "f", "", "read the availability text from a file")
	suggestCmd.Flags().String("constraints-file", "", "read extracted constraints from a JSON file, skipping the AI step")
	suggestCmd.Flags().BoolP("auto-approve", "y", false, "book the top-ranked slot without asking")
	suggestCmd.Flags().Bool("dry-run", false, "print ranked slots and exit without booking")
}

// suggest is the main command for the cli.
func suggest(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the sontaku-scheduler", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	constraints, formalMessage := resolveConstraints(ctx, cmd, config, logger)

	search, err := searchConfig(config.Scheduler)
	if err != nil {
		logger.Fatal("building search configuration", zap.Error(err))
	}

	if config.Scheduler != nil && config.Scheduler.Timezone != "" {
		loc, err := time.LoadLocation(config.Scheduler.Timezone)
		if err != nil {
			logger.Fatal("loading scheduler timezone", zap.Error(err))
		}
		search.Now = func() time.Time { return time.Now().In(loc) }
	}

	cal, err := newCalendarClient(ctx, config, logger)
	if err != nil {
		logger.Fatal(
			"building calendar client",
			zap.Error(err),
			zap.String("hint", "set GOOGLE_CALENDAR_TOKEN_FILE environment variable or the 'calendar.token-file' key in the configuration file"),
		)
	}

	now := search.Now()
	busy, err := cal.BusyIntervals(now, now.AddDate(0, 0, search.HorizonDays+1))
	if err != nil {
		logger.Fatal("fetching busy intervals", zap.Error(err))
	}

	logger.Info("fetched calendar busy intervals", zap.Int("count", len(busy)))

	duration := scheduler.DefaultDurationMinutes
	if config.Interview != nil && config.Interview.DurationMinutes > 0 {
		duration = config.Interview.DurationMinutes
	}

	var lunchOverride scheduler.LunchPolicy
	if config.Scheduler != nil {
		lunchOverride = scheduler.LunchPolicy(strings.ToLower(config.Scheduler.LunchPolicy))
	}

	engine := scheduler.New(search)
	slots, err := engine.Generate(constraints, duration, busy, lunchOverride)
	if err != nil {
		logger.Fatal("generating slots", zap.Error(err))
	}

	if len(slots) == 0 {
		logger.Info("exiting", zap.String("reason", "no free slots in the search horizon"))
		return
	}

	printSlots(slots, formalMessage)

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		logger.Info("exiting", zap.String("reason", "dry run requested"))
		return
	}

	slot, err := chooseSlot(cmd, slots)
	if err != nil {
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "no slot selected"))
			return
		}
		logger.Fatal("choosing a slot", zap.Error(err))
	}

	if err := book(ctx, config, logger, cal, slot, duration); err != nil {
		logger.Fatal("booking the slot", zap.Error(err))
	}
}

// resolveConstraints returns the scheduling constraints and the polite reply
// to send the candidate. A constraints file wins over AI extraction; a failed
// extraction degrades to conservative defaults rather than aborting.
func resolveConstraints(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) (*scheduler.Constraints, string) {
	if path, _ := cmd.Flags().GetString("constraints-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("reading constraints file", zap.Error(err))
		}

		var constraints scheduler.Constraints
		if err := json.Unmarshal(data, &constraints); err != nil {
			logger.Fatal("parsing constraints file", zap.Error(err))
		}

		logger.Info("using constraints from file", zap.String("file", path))
		return &constraints, constraints.FormalMessage
	}

	text := availabilityText(cmd, logger)

	extractor, err := newExtractor(ctx, config, logger)
	if err != nil {
		logger.Fatal(
			"building constraint extractor",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	instructions := ""
	if config.Interview != nil {
		instructions = config.Interview.Instructions
	}

	extraction, err := extractor.Extract(ctx, text, instructions)
	if err != nil {
		logger.Warn("constraint extraction failed, using default constraints", zap.Error(err))
		return ai.FallbackConstraints(), ""
	}

	logger.Info("extracted constraints", zap.String("analysis", extraction.Constraints.RawAnalysis))

	return extraction.Constraints, extraction.Constraints.FormalMessage
}

func availabilityText(cmd *cobra.Command, logger *zap.Logger) string {
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		return text
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("reading availability file", zap.Error(err))
		}
		return string(data)
	}

	prompt := promptui.Prompt{
		Label: "Candidate availability",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("availability text is required")
			}
			return nil
		},
	}

	text, err := prompt.Run()
	if err != nil {
		logger.Fatal("reading availability from prompt", zap.Error(err))
	}

	return text
}

func newExtractor(ctx context.Context, config *Config, baseLogger *zap.Logger) (ai.Extractor, error) {
	aiCfg := config.AI
	if aiCfg == nil || aiCfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(aiCfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: aiCfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, aiCfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	extractorLogger := logger.WithAIFields(baseLogger, "gemini", generator.Model())

	return gemini.NewExtractor(generator, extractorLogger, aiCfg.Gemini.MaxRetries, aiCfg.Gemini.MaxLogLength), nil
}

func newCalendarClient(ctx context.Context, config *Config, logger *zap.Logger) (*calendar.Client, error) {
	if config.Calendar == nil {
		return nil, errors.New("calendar configuration is required")
	}

	token, err := secrets.Load(secrets.Source{
		Name: "google calendar token",
		File: config.Calendar.TokenFile,
	})
	if err != nil {
		return nil, err
	}

	cal := calendar.New(ctx, logger, token)
	if config.Calendar.CalendarID != "" {
		cal.CalendarID = config.Calendar.CalendarID
	}

	return cal, nil
}

func printSlots(slots []scheduler.Slot, formalMessage string) {
	if formalMessage != "" {
		fmt.Printf("\nCandidate reply (formal):\n  %s\n", formalMessage)
	}

	fmt.Printf("\nSuggested slots:\n")
	for i, slot := range slots {
		fmt.Printf("  %d. %s", i+1, slotLabel(slot))
		if len(slot.Reasons) > 0 {
			fmt.Printf("  [%s]", strings.Join(slot.Reasons, ", "))
		}
		fmt.Println()
	}
	fmt.Println()
}

func chooseSlot(cmd *cobra.Command, slots []scheduler.Slot) (*scheduler.Slot, error) {
	if auto, _ := cmd.Flags().GetBool("auto-approve"); auto {
		return &slots[0], nil
	}

	items := make([]string, 0, len(slots)+1)
	for _, slot := range slots {
		items = append(items, slotLabel(slot))
	}
	items = append(items, PromptNone)

	prompt := promptui.Select{
		Label: "Choose a slot and press ENTER",
		Items: items,
	}

	idx, selected, err := prompt.Run()
	if err != nil {
		return nil, err
	}

	if selected == PromptNone {
		return nil, errExit
	}

	return &slots[idx], nil
}

func slotLabel(slot scheduler.Slot) string {
	label := fmt.Sprintf("%s - %s (score %d)",
		slot.Start.Format("Mon 2006-01-02 15:04"),
		slot.End.Format("15:04"),
		slot.Score,
	)
	if slot.IsFallback {
		label += " *fallback"
	}

	return label
}

// book creates the calendar event and, when configured, the Zoom meeting and
// the confirmation email for the chosen slot.
func book(ctx context.Context, config *Config, logger *zap.Logger, cal *calendar.Client, slot *scheduler.Slot, durationMinutes int) error {
	interview := config.Interview
	if interview == nil {
		interview = &InterviewConfig{}
	}

	title := interview.Title
	if title == "" {
		title = defaultInterviewTitle
	}
	if interview.CandidateName != "" {
		title = fmt.Sprintf("%s: %s", title, interview.CandidateName)
	}

	description := interview.Description

	var joinURL string
	if config.Zoom != nil && config.Zoom.Enabled {
		meeting, err := newZoomMeeting(ctx, config.Zoom, logger, title, description, slot.Start, durationMinutes)
		if err != nil {
			return fmt.Errorf("creating zoom meeting: %w", err)
		}

		joinURL = meeting.JoinURL
		if description != "" {
			description += "\n\n"
		}
		description += "Zoom: " + joinURL

		logger.Info("created zoom meeting", zap.String("join_url", joinURL))
	}

	event := &calendar.EventRequest{
		Summary:     title,
		Description: description,
		Start:       calendar.EventTime{DateTime: slot.Start.Format(time.RFC3339)},
		End:         calendar.EventTime{DateTime: slot.End.Format(time.RFC3339)},
	}
	if interview.CandidateEmail != "" {
		event.Attendees = []calendar.Attendee{{Email: interview.CandidateEmail}}
	}

	created, err := cal.CreateEvent(event)
	if err != nil {
		return fmt.Errorf("creating calendar event: %w", err)
	}

	logger.Info("created calendar event",
		zap.String("event_id", created.ID),
		zap.String("link", created.HTMLLink),
	)

	if config.Email != nil && config.Email.Enabled {
		if interview.CandidateEmail == "" {
			logger.Warn("skipping confirmation email", zap.String("reason", "interview.candidate-email is not set"))
			return nil
		}

		if err := sendConfirmation(ctx, config.Email, logger, interview, slot, joinURL, created.HTMLLink); err != nil {
			return fmt.Errorf("sending confirmation email: %w", err)
		}

		logger.Info("sent confirmation email", zap.String("to", interview.CandidateEmail))
	}

	return nil
}

func newZoomMeeting(ctx context.Context, cfg *ZoomConfig, logger *zap.Logger, topic, agenda string, start time.Time, durationMinutes int) (*zoom.Meeting, error) {
	secret, err := secrets.Load(secrets.Source{
		Name: "zoom client secret",
		File: cfg.ClientSecretFile,
	})
	if err != nil {
		return nil, err
	}

	client := zoom.New(ctx, logger, cfg.AccountID, cfg.ClientID, secret)

	return client.CreateMeeting(topic, agenda, start, durationMinutes)
}

func sendConfirmation(ctx context.Context, cfg *EmailConfig, logger *zap.Logger, interview *InterviewConfig, slot *scheduler.Slot, joinURL, calendarLink string) error {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "resend api key",
		File: cfg.APIKeyFile,
	})
	if err != nil {
		return err
	}

	client := notify.New(ctx, logger, apiKey)
	if cfg.From != "" {
		client.From = cfg.From
	}

	return client.SendConfirmed(&notify.Confirmation{
		To:            interview.CandidateEmail,
		CandidateName: interview.CandidateName,
		Start:         slot.Start,
		End:           slot.End,
		JoinURL:       joinURL,
		CalendarLink:  calendarLink,
	})
}
