package cmd

import (
	"os"

	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/chat"
	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var flags modelFlags
	var annotateDir string

	cmd := &cobra.Command{
		Use:   "chat [image]",
		Short: "Chat with the model about an image",
		Long: `Starts an interactive conversation. The image stays attached to every
turn and the model sees the earlier exchanges.

Type /image <path|url> to switch images, /clear to forget the conversation,
and /quit to exit.`,
		Example: `  magma chat page.png
  magma chat --provider ollama --annotate-dir marked/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if annotateDir != "" {
				if err := os.MkdirAll(annotateDir, 0755); err != nil {
					return err
				}
			}

			session := chat.NewSession(assistant.NewService(cfg), images.NewFetcher(), chat.Options{
				Provider:     flags.provider,
				Model:        flags.model,
				SystemPrompt: flags.systemPrompt,
				Temperature:  flags.temperatureOverride(cmd),
				MaxTokens:    flags.maxTokens,
				AnnotateDir:  annotateDir,
			})
			if len(args) == 1 {
				if err := session.SetImage(cmd.Context(), args[0]); err != nil {
					return err
				}
			}

			return chat.Run(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&annotateDir, "annotate-dir", "", "Save annotated images here when a reply has coordinates")

	return cmd
}
