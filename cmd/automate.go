package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/automation"
	"github.com/lehigh-university-libraries/magma/internal/browser"
	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/spf13/cobra"
)

func newAutomateCmd() *cobra.Command {
	var (
		provider      string
		model         string
		execute       bool
		screenshotOut string
		highlightOut  string
		resultOut     string
		chromePath    string
		desktop       bool
	)

	cmd := &cobra.Command{
		Use:   "automate <url> [prompt]",
		Short: "Screenshot a page, locate an element, and optionally click it",
		Long: `Loads the page in headless Chrome emulating a phone, asks the model where
the requested element is (the main call-to-action by default), and draws the
detected location on the screenshot.

With --execute, the page is loaded again and the element under the detected
location is clicked. The resulting page title and a text preview are printed.`,
		Example: `  magma automate example.com --highlight-out found.png
  magma automate https://example.com "Find the sign in link" --execute --result-out after.png`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			url, err := browser.NormalizeURL(args[0])
			if err != nil {
				return err
			}
			prompt := ""
			if len(args) == 2 {
				prompt = strings.TrimSpace(args[1])
			}

			opts := browser.DefaultOptions()
			opts.ExecPath = chromePath
			opts.Mobile = !desktop
			b := browser.New(opts)
			b.OnProgress(func(message string, percent int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", percent, message)
			})

			session := automation.NewSession(b, assistant.NewService(cfg))
			session.Provider = provider
			session.Model = model

			w := cmd.OutOrStdout()
			shot, err := session.Capture(cmd.Context(), url)
			if err != nil {
				return err
			}
			if screenshotOut != "" {
				if err := os.WriteFile(screenshotOut, shot.PNG, 0644); err != nil {
					return err
				}
				fmt.Fprintf(w, "Screenshot saved to: %s\n", screenshotOut)
			}

			analysis, err := session.Analyze(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Reply: %s\n", analysis.Answer.Reply)
			if analysis.Highlighted == nil {
				fmt.Fprintln(w, "No coordinates detected.")
				if execute {
					return automation.ErrNoLocation
				}
				return nil
			}
			fmt.Fprintf(w, "Location: %s\n", analysis.Answer.Location)
			if highlightOut != "" {
				if err := annotate.SavePNG(analysis.Highlighted, highlightOut); err != nil {
					return err
				}
				fmt.Fprintf(w, "Highlighted screenshot saved to: %s\n", highlightOut)
			}

			if !execute {
				return nil
			}

			result, err := session.Execute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Clicked at (%d, %d) in a %dx%d viewport\n", result.Target.X, result.Target.Y, result.Viewport.X, result.Viewport.Y)
			fmt.Fprintln(w, result.Summary())
			if resultOut != "" && result.Screenshot != nil {
				if err := os.WriteFile(resultOut, result.Screenshot.PNG, 0644); err != nil {
					return err
				}
				fmt.Fprintf(w, "Result screenshot saved to: %s\n", resultOut)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Model provider (default from MAGMA_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().BoolVar(&execute, "execute", false, "Click the detected location")
	cmd.Flags().StringVar(&screenshotOut, "screenshot-out", "", "Save the captured screenshot here")
	cmd.Flags().StringVar(&highlightOut, "highlight-out", "", "Save the highlighted screenshot here")
	cmd.Flags().StringVar(&resultOut, "result-out", "", "Save the screenshot taken after clicking here")
	cmd.Flags().StringVar(&chromePath, "chrome", "", "Path to the Chrome or Chromium binary")
	cmd.Flags().BoolVar(&desktop, "desktop", false, "Disable mobile emulation")

	return cmd
}
