package evalcmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command for evaluating grounding accuracy
func NewRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate click grounding against a labelled screenshot dataset",
		Long: `Asks the model to locate each record's instruction in its screenshot and
scores the reply against the labelled bounding box.

A prediction is a hit when its click target (a point, or the center of a box)
falls inside the expected box. Box predictions also report IoU.`,
		Example: `  # Evaluate 20 records against the local Magma demo
  magma eval run --dataset ./screenspot.parquet --sample 20

  # Evaluate icons only with Ollama, four requests at a time
  magma eval run --dataset ./screenspot.jsonl --provider ollama --data-type icon --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.DatasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", opts.DatasetPath)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			opts.Temperature = cfg.Temperature
			agg, path, err := executeRun(cmd.Context(), assistant.NewService(cfg), opts)
			if err != nil {
				return err
			}

			agg.PrintSummary(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "\nResults saved to: %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "\nGenerate a report with:\n  magma eval report --results %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DatasetPath, "dataset", "", "Path to parquet or jsonl grounding dataset (required)")
	cmd.Flags().IntVar(&opts.Sample, "sample", 10, "Number of records to evaluate (-1 for all)")
	cmd.Flags().StringVar(&opts.DataType, "data-type", "", "Only evaluate records with this data_type")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "Model provider (gradio, ollama, openai, or gemini)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 1, "Number of records evaluated in parallel")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "evals", "Directory for the results YAML")
	cmd.Flags().StringVar(&opts.OutputJSON, "output-json", "", "Also write aggregate results as JSON")
	cmd.Flags().StringVar(&opts.OutputReport, "output-report", "", "Also write a detailed text report")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a saved evaluation",
		Example: `  magma eval report --results evals/magma-2025-01-02_03-04-05.yaml
  magma eval report --results evals/magma-2025-01-02_03-04-05.yaml --format csv > results.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), resultsPath, format)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to an evaluation YAML file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	_ = cmd.MarkFlagRequired("results")
	return cmd
}
