package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/coords"
)

// EvaluationResult represents the results for a single grounding record
type EvaluationResult struct {
	ID             string           `json:"id"`
	Instruction    string           `json:"instruction"`
	DataType       string           `json:"data_type,omitempty"`
	Reply          string           `json:"reply"`
	Predicted      *coords.Location `json:"predicted,omitempty"`
	Expected       coords.Box       `json:"expected"`
	Score          Score            `json:"score"`
	ProcessingTime time.Duration    `json:"processing_time"`
	Error          string           `json:"error,omitempty"` // If the model call failed
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int

	Hits          int
	ParseFailures int
	Accuracy      float64

	BoxPredictions     int
	MeanIoU            float64
	MeanCenterDistance float64

	ByDataType map[string]*TypeStats

	// Timing
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Detailed results
	Results []EvaluationResult

	// Metadata
	EvaluationDate time.Time
	Provider       string
	Model          string
	SampleSize     int
}

// TypeStats is accuracy for one data_type
type TypeStats struct {
	Total    int
	Hits     int
	Accuracy float64
}

// AggregateEvaluationResults aggregates multiple evaluation results. Accuracy
// is over records the model answered; unparseable replies count as misses.
func AggregateEvaluationResults(results []EvaluationResult, provider, model string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		ByDataType:     make(map[string]*TypeStats),
		EvaluationDate: time.Now(),
		Provider:       provider,
		Model:          model,
		SampleSize:     len(results),
	}

	var ious, distances []float64
	var totalDuration time.Duration
	var successDuration time.Duration

	for _, result := range results {
		totalDuration += result.ProcessingTime

		if result.Error != "" {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		dataType := result.DataType
		if dataType == "" {
			dataType = "unknown"
		}
		stats, ok := agg.ByDataType[dataType]
		if !ok {
			stats = &TypeStats{}
			agg.ByDataType[dataType] = stats
		}
		stats.Total++

		if !result.Score.Parsed() {
			agg.ParseFailures++
			continue
		}
		if result.Score.Hit {
			agg.Hits++
			stats.Hits++
		}
		if result.Score.HasIoU {
			agg.BoxPredictions++
			ious = append(ious, result.Score.IoU)
		}
		distances = append(distances, result.Score.CenterDistance)
	}

	// Calculate averages
	if agg.SuccessCount > 0 {
		agg.Accuracy = float64(agg.Hits) / float64(agg.SuccessCount)
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	agg.MeanIoU = calculateAverage(ious)
	agg.MeanCenterDistance = calculateAverage(distances)
	for _, stats := range agg.ByDataType {
		if stats.Total > 0 {
			stats.Accuracy = float64(stats.Hits) / float64(stats.Total)
		}
	}

	agg.TotalProcessingTime = totalDuration

	return agg
}

// calculateAverage calculates the average of a slice of scores
func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}

	return sum / float64(len(scores))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// PrintSummary writes a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "MAGMA GROUNDING EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Provider: %s\n", a.Provider)
	fmt.Fprintf(w, "Model: %s\n", a.Model)
	fmt.Fprintf(w, "Sample Size: %d records\n", a.SampleSize)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Records: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, percent(a.SuccessCount, a.TotalRecords))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, percent(a.FailureCount, a.TotalRecords))
	fmt.Fprintf(w, "Unparseable Replies: %d\n", a.ParseFailures)
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "GROUNDING")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Click Accuracy: %.2f%% (%d/%d)\n", a.Accuracy*100, a.Hits, a.SuccessCount)
	fmt.Fprintf(w, "Mean IoU: %.3f over %d box predictions\n", a.MeanIoU, a.BoxPredictions)
	fmt.Fprintf(w, "Mean Center Distance: %.3f\n", a.MeanCenterDistance)

	if len(a.ByDataType) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "BY DATA TYPE")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		types := make([]string, 0, len(a.ByDataType))
		for t := range a.ByDataType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			s := a.ByDataType[t]
			fmt.Fprintf(w, "  %-12s %.2f%% (%d/%d)\n", t, s.Accuracy*100, s.Hits, s.Total)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

// SaveDetailedReport saves a detailed report with individual results
func (a *AggregateResults) SaveDetailedReport(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "MAGMA GROUNDING EVALUATION DETAILED REPORT\n")
	fmt.Fprintf(file, "Generated: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Provider: %s, Model: %s\n", a.Provider, a.Model)
	separator := strings.Repeat("=", 80)
	fmt.Fprintf(file, "%s\n\n", separator)

	dash := strings.Repeat("-", 80)
	for i, result := range a.Results {
		fmt.Fprintf(file, "RECORD %d: %s\n", i+1, result.ID)
		fmt.Fprintf(file, "%s\n", dash)
		fmt.Fprintf(file, "Instruction: %s\n", result.Instruction)
		fmt.Fprintf(file, "Data Type: %s\n", result.DataType)
		fmt.Fprintf(file, "Processing Time: %s\n", result.ProcessingTime)

		if result.Error != "" {
			fmt.Fprintf(file, "ERROR: %s\n", result.Error)
		} else {
			fmt.Fprintf(file, "Reply: %s\n", result.Reply)
			fmt.Fprintf(file, "Expected: %s\n", coords.Location{Kind: coords.KindBox, Box: result.Expected})
			if result.Predicted != nil {
				fmt.Fprintf(file, "Predicted: %s\n", result.Predicted)
			}
			fmt.Fprintf(file, "Outcome: %s, Hit: %t", result.Score.Outcome, result.Score.Hit)
			if result.Score.HasIoU {
				fmt.Fprintf(file, ", IoU: %.3f", result.Score.IoU)
			}
			fmt.Fprintln(file)
		}

		fmt.Fprintf(file, "\n%s\n\n", separator)
	}

	return nil
}
