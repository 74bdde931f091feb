package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "magma",
		Short: "Ask multimodal agent models about images and act on what they find",
		Long: `Magma talks to a vision-language model (a Magma Gradio demo, Ollama, OpenAI,
or Gemini) about images and screenshots.

It can answer questions about an image, locate UI elements as normalized
coordinates, draw those coordinates, and click them in a headless browser.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newLocateCmd())
	cmd.AddCommand(newAutomateCmd())
	cmd.AddCommand(newSplitCmd())
	cmd.AddCommand(newStaticCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}

// modelFlags are shared by commands that talk to a model
type modelFlags struct {
	provider     string
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "Model provider (gradio, ollama, openai, or gemini; default from MAGMA_PROVIDER)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVar(&f.systemPrompt, "system-prompt", "", "System prompt (default from MAGMA_SYSTEM_PROMPT)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (default from MAGMA_TEMPERATURE)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "Maximum new tokens (default from MAGMA_MAX_NEW_TOKENS)")
}

// temperatureOverride returns the flag value only when it was set
func (f *modelFlags) temperatureOverride(cmd *cobra.Command) *float64 {
	if !cmd.Flags().Changed("temperature") {
		return nil
	}
	t := f.temperature
	return &t
}
