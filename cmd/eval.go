package cmd

import (
	"github.com/lehigh-university-libraries/magma/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Grounding evaluation tools",
		Long: `Evaluation tools for measuring how accurately a model locates UI elements.

Runs a model over a labelled screenshot dataset (Parquet or JSONL), scores
each predicted coordinate against the expected bounding box, and reports
click accuracy, IoU and per data type results.`,
	}

	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())

	return cmd
}
