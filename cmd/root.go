package cmd

import (
	"fmt"
	"log"

	"github.com/spigell/sontaku-scheduler/internal/scheduler"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "sontaku-scheduler"
)

type Config struct {
	Interview *InterviewConfig `mapstructure:"interview"`
	Scheduler *SchedulerConfig `mapstructure:"scheduler"`
	AI        *AIConfig        `mapstructure:"ai"`
	Calendar  *CalendarConfig  `mapstructure:"calendar"`
	Zoom      *ZoomConfig      `mapstructure:"zoom"`
	Email     *EmailConfig     `mapstructure:"email"`
}

type InterviewConfig struct {
	Title           string `mapstructure:"title"`
	Description     string `mapstructure:"description"`
	CandidateName   string `mapstructure:"candidate-name"`
	CandidateEmail  string `mapstructure:"candidate-email"`
	DurationMinutes int    `mapstructure:"duration-minutes"`
	// Instructions tune the extraction persona: tone, days to ignore, etc.
	Instructions string `mapstructure:"instructions"`
}

type SchedulerConfig struct {
	WorkdayStart   string `mapstructure:"workday-start"`
	WorkdayEnd     string `mapstructure:"workday-end"`
	LunchStart     string `mapstructure:"lunch-start"`
	LunchEnd       string `mapstructure:"lunch-end"`
	HorizonDays    int    `mapstructure:"horizon-days"`
	StepMinutes    int    `mapstructure:"step-minutes"`
	MaxResults     int    `mapstructure:"max-results"`
	DedupeOverlaps bool   `mapstructure:"dedupe-overlaps"`
	LunchPolicy    string `mapstructure:"lunch-policy"`
	Timezone       string `mapstructure:"timezone"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CalendarConfig struct {
	TokenFile  string `mapstructure:"token-file"`
	CalendarID string `mapstructure:"calendar-id"`
}

type ZoomConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	AccountID        string `mapstructure:"account-id"`
	ClientID         string `mapstructure:"client-id"`
	ClientSecretFile string `mapstructure:"client-secret-file"`
}

type EmailConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKeyFile string `mapstructure:"api-key-file"`
	From       string `mapstructure:"from"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "sontaku-scheduler turns a candidate's free-text availability into booked interview slots",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"ai.gemini.api-key-file":  "GEMINI_API_KEY_FILE",
		"calendar.token-file":     "GOOGLE_CALENDAR_TOKEN_FILE",
		"zoom.client-secret-file": "ZOOM_CLIENT_SECRET_FILE",
		"email.api-key-file":      "RESEND_API_KEY_FILE",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is sontaku-scheduler.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the suggest and extract commands now. If there is
	// no config, we can skip initialization.
	if suggestCmd.CalledAs() == "" && extractCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// searchConfig converts the YAML scheduler section into the engine's search
// configuration. Empty fields keep the engine defaults.
func searchConfig(cfg *SchedulerConfig) (scheduler.SearchConfig, error) {
	search := scheduler.DefaultSearchConfig()
	if cfg == nil {
		return search, nil
	}

	times := []struct {
		name   string
		value  string
		target *scheduler.TimeOfDay
	}{
		{"workday-start", cfg.WorkdayStart, &search.WorkdayStart},
		{"workday-end", cfg.WorkdayEnd, &search.WorkdayEnd},
		{"lunch-start", cfg.LunchStart, &search.LunchStart},
		{"lunch-end", cfg.LunchEnd, &search.LunchEnd},
	}
	for _, t := range times {
		if t.value == "" {
			continue
		}
		parsed, err := scheduler.ParseTimeOfDay(t.value)
		if err != nil {
			return search, fmt.Errorf("scheduler.%s: %w", t.name, err)
		}
		*t.target = parsed
	}

	if cfg.HorizonDays > 0 {
		search.HorizonDays = cfg.HorizonDays
	}
	if cfg.StepMinutes > 0 {
		search.StepMinutes = cfg.StepMinutes
	}
	if cfg.MaxResults > 0 {
		search.MaxResults = cfg.MaxResults
	}
	if cfg.DedupeOverlaps {
		search.PostFilters = append(search.PostFilters, scheduler.NewOverlapDedupe())
	}

	return search, nil
}
