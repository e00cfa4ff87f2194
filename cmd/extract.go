package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spigell/sontaku-scheduler/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract scheduling constraints from availability text and print them as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		extract(cmd)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("text", "t", "", "the candidate's availability text")
	extractCmd.Flags().StringP("file", "f", "", "read the availability text from a file")
}

// extract runs only the AI step. Useful for inspecting what the model reads
// into a message, and for producing a constraints file for suggest.
func extract(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
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
		logger.Fatal("extracting constraints", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(extraction.Constraints, "", "  ")
	if err != nil {
		logger.Fatal("encoding constraints", zap.Error(err))
	}

	fmt.Println(string(pretty))
}
