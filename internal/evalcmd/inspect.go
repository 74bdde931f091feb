package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/eval/dataset"
	"github.com/spf13/cobra"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int
	var interactive bool
	var annotateDir string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect grounding dataset records",
		Long: `Inspect records from a parquet or jsonl grounding dataset file.

Prints each record's instruction, data type, image size and expected box.
With --annotate-dir, the expected box is drawn over each screenshot.`,
		Example: `  # Inspect first 5 records interactively
  magma eval inspect --dataset ./screenspot.parquet --limit 5 --interactive

  # Write annotated screenshots for the first 20 records
  magma eval inspect --dataset ./screenspot.parquet --limit 20 --annotate-dir ./inspect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Create a context that gets canceled on an interrupt signal (Ctrl+C)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return executeInspect(ctx, cmd.OutOrStdout(), cmd.InOrStdin(), datasetPath, limit, interactive, annotateDir)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to parquet or jsonl dataset file (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to inspect (0 for all)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each record (press Enter to continue)")
	cmd.Flags().StringVar(&annotateDir, "annotate-dir", "", "Write each screenshot with its expected box drawn")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func executeInspect(ctx context.Context, w io.Writer, in io.Reader, datasetPath string, limit int, interactive bool, annotateDir string) error {
	loader := dataset.NewLoader(datasetPath)

	var records []dataset.GroundingRecord
	var err error
	if limit > 0 {
		records, err = loader.LoadSample(limit)
	} else {
		records, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	if annotateDir != "" {
		if err := os.MkdirAll(annotateDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", annotateDir, err)
		}
	}

	fmt.Fprintf(w, "Loaded %d records from %s\n", len(records), datasetPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	reader := bufio.NewReader(in)

	for i := range records {
		record := &records[i]

		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "RECORD %d/%d\n", i+1, len(records))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "ID:           %s\n", record.ID)
		fmt.Fprintf(w, "Instruction:  %s\n", record.Instruction)
		fmt.Fprintf(w, "Data Type:    %s\n", record.DataType)
		fmt.Fprintf(w, "BBox (raw):   %v\n", record.BBox)

		src, err := record.LoadImage(loader.Dir())
		if err != nil {
			fmt.Fprintf(w, "Image:        unavailable (%v)\n", err)
		} else {
			fmt.Fprintf(w, "Image:        %s %dx%d\n", src.MIME, src.Width(), src.Height())

			box, err := record.ExpectedBox(src.Width(), src.Height())
			if err != nil {
				fmt.Fprintf(w, "Expected:     invalid (%v)\n", err)
			} else {
				loc := coords.Location{Kind: coords.KindBox, Box: box}
				fmt.Fprintf(w, "Expected:     %s\n", loc)
				fmt.Fprintf(w, "Click Target: %v\n", loc.ClickTarget(src.Width(), src.Height()))

				if annotateDir != "" {
					path := filepath.Join(annotateDir, record.ID+".png")
					if err := annotate.SavePNG(annotate.Draw(src.Image, loc, annotate.Highlight), path); err != nil {
						return err
					}
					fmt.Fprintf(w, "Annotated:    %s\n", path)
				}
			}
		}
		fmt.Fprintln(w)

		if interactive {
			fmt.Fprint(w, "Press Enter to continue to next record (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}
