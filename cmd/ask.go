package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var flags modelFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <image> [question]",
		Short: "Ask a question about an image",
		Long: `Sends an image (local path or http(s) URL) and a question to the model and
prints the reply. The question defaults to "What is in this image?".`,
		Example: `  magma ask screenshot.png "What does this page do?"
  magma ask https://example.com/chart.jpg --provider openai --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			src, err := images.NewFetcher().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			prompt := strings.TrimSpace(strings.Join(args[1:], " "))
			if prompt == "" {
				prompt = assistant.DefaultQuestion
			}

			svc := assistant.NewService(cfg)
			answer, err := svc.Ask(cmd.Context(), assistant.Query{
				Provider:     flags.provider,
				Model:        flags.model,
				SystemPrompt: flags.systemPrompt,
				Prompt:       prompt,
				Image:        assistant.ImageFrom(src),
				Temperature:  flags.temperatureOverride(cmd),
				MaxTokens:    flags.maxTokens,
			})
			if err != nil {
				return err
			}

			if asJSON {
				assistant.ParseInto(answer)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(answer)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Reply)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the answer as JSON, including any parsed coordinates")

	return cmd
}
