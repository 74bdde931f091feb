package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/spf13/cobra"
)

func newSplitCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "split <image>",
		Short: "Split an image into four quadrants",
		Long: `Splits an image into top-left, top-right, bottom-left and bottom-right
quadrants and saves them as <prefix>_1.png through <prefix>_4.png.`,
		Example: `  magma split screenshot.png
  magma split https://example.com/page.png --prefix out/page`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := images.NewFetcher().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if prefix == "" {
				prefix = strings.TrimSuffix(src.Name, filepath.Ext(src.Name))
			}

			paths, err := images.SaveQuadrants(src.Image, prefix)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Output path prefix (defaults to the image name)")

	return cmd
}
