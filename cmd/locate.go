package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/spf13/cobra"
)

func newLocateCmd() *cobra.Command {
	var flags modelFlags
	var out string
	var highlight bool

	cmd := &cobra.Command{
		Use:   "locate <image> [prompt]",
		Short: "Locate an element in an image and optionally draw it",
		Long: `Asks the model for the coordinates of an element, parses the normalized
point or box from the reply, and prints it with its pixel position.

With --out, the location is drawn on the image: a point gets a circle and
cross, a box gets a rectangle.`,
		Example: `  magma locate page.png "Where is the search button?" --out marked.png
  magma locate https://example.com/shot.png --highlight --out marked.png`,
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
			systemPrompt := flags.systemPrompt
			if prompt == "" {
				prompt = assistant.WebUserPrompt
				if systemPrompt == "" {
					systemPrompt = assistant.WebSystemPrompt
				}
			}

			svc := assistant.NewService(cfg)
			answer, err := svc.Locate(cmd.Context(), assistant.Query{
				Provider:     flags.provider,
				Model:        flags.model,
				SystemPrompt: systemPrompt,
				Prompt:       prompt,
				Image:        assistant.ImageFrom(src),
				Temperature:  flags.temperatureOverride(cmd),
				MaxTokens:    flags.maxTokens,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Reply: %s\n", answer.Reply)
			if answer.Location == nil {
				return fmt.Errorf("no usable coordinates in reply: %w", answer.ParseErr)
			}

			loc := *answer.Location
			fmt.Fprintf(w, "Location: %s\n", loc)
			if loc.Kind == coords.KindBox {
				fmt.Fprintf(w, "Pixels: %v (center %v)\n", loc.Rect(src.Width(), src.Height()), loc.ClickTarget(src.Width(), src.Height()))
			} else {
				fmt.Fprintf(w, "Pixels: %v\n", loc.Pixel(src.Width(), src.Height()))
			}

			if out != "" {
				opts := annotate.Annotate
				if highlight {
					opts = annotate.Highlight
				}
				if err := annotate.SavePNG(annotate.Draw(src.Image, loc, opts), out); err != nil {
					return err
				}
				fmt.Fprintf(w, "Annotated image saved to: %s\n", out)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the annotated image to this PNG file")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "Draw boxes with the thicker highlight style")

	return cmd
}
