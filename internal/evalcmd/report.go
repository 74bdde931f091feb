package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/lehigh-university-libraries/magma/internal/eval/metrics"
	"github.com/lehigh-university-libraries/magma/internal/eval/results"
)

func executeReport(w io.Writer, resultsPath, format string) error {
	doc, err := results.LoadYAML(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		return printTextReport(w, doc)
	case "json":
		return printJSONReport(w, doc)
	case "csv":
		return printCSVReport(w, doc)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(w io.Writer, doc *results.EvalSpec) error {
	agg := metrics.AggregateEvaluationResults(doc.EvaluationResults(), doc.Config.Provider, doc.Config.Model)
	agg.PrintSummary(w)

	fmt.Fprintln(w, "\nDetailed Results:")
	fmt.Fprintln(w, "========================================")

	for i, result := range doc.Results {
		fmt.Fprintf(w, "\n[%d] Record ID: %s\n", i+1, result.Identifier)
		fmt.Fprintf(w, "  Instruction: %s\n", truncate(result.Instruction, 80))

		if result.Error != "" {
			fmt.Fprintf(w, "  ❌ Error: %s\n", result.Error)
			continue
		}

		mark := "✗"
		if result.Hit {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %s", mark, result.Outcome)
		if result.IoU != nil {
			fmt.Fprintf(w, " (IoU %.3f)", *result.IoU)
		}
		fmt.Fprintln(w)
		if result.Predicted == "" {
			fmt.Fprintf(w, "  Reply: %s\n", truncate(result.ProviderResponse, 80))
		}
	}

	return nil
}

func printJSONReport(w io.Writer, doc *results.EvalSpec) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func printCSVReport(w io.Writer, doc *results.EvalSpec) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"ID", "Data Type", "Outcome", "Hit", "IoU", "Center Distance", "Seconds", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range doc.Results {
		iou := ""
		if result.IoU != nil {
			iou = fmt.Sprintf("%.4f", *result.IoU)
		}
		row := []string{
			result.Identifier,
			result.DataType,
			result.Outcome,
			strconv.FormatBool(result.Hit),
			iou,
			fmt.Sprintf("%.4f", result.CenterDistance),
			fmt.Sprintf("%.2f", result.ProcessingSeconds),
			result.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
