package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/eval/dataset"
	"github.com/lehigh-university-libraries/magma/internal/eval/metrics"
	"github.com/lehigh-university-libraries/magma/internal/eval/results"
	"golang.org/x/sync/errgroup"
)

// GroundingPrompt asks for the element named by a record's instruction
const GroundingPrompt = "In this screenshot, find the element for: %s. Give me its coordinates."

type runOptions struct {
	DatasetPath  string
	Sample       int
	DataType     string
	Provider     string
	Model        string
	Temperature  float64
	Concurrency  int
	OutputDir    string
	OutputJSON   string
	OutputReport string
}

// Locator asks a model where something is
type Locator interface {
	Locate(ctx context.Context, q assistant.Query) (*assistant.Answer, error)
}

func loadRecords(opts runOptions) ([]dataset.GroundingRecord, error) {
	loader := dataset.NewLoader(opts.DatasetPath)
	if opts.DataType == "" {
		return loader.LoadSample(opts.Sample)
	}

	records, err := loader.LoadWithFilter(func(r *dataset.GroundingRecord) bool {
		return r.DataType == opts.DataType
	})
	if err != nil {
		return nil, err
	}
	if opts.Sample >= 0 && len(records) > opts.Sample {
		records = records[:opts.Sample]
	}
	return records, nil
}

func executeRun(ctx context.Context, locator Locator, opts runOptions) (*metrics.AggregateResults, string, error) {
	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "provider", opts.Provider, "model", opts.Model)

	records, err := loadRecords(opts)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "records", len(records))

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	baseDir := dataset.NewLoader(opts.DatasetPath).Dir()

	evalResults := make([]metrics.EvaluationResult, len(records))
	answers := make([]*assistant.Answer, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range records {
		record := records[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slog.Info("Processing record", "id", record.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(records)))

			evalResults[i], answers[i] = processRecord(gctx, locator, &record, baseDir, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	// report the provider and model the service actually resolved
	provider, model := opts.Provider, opts.Model
	for _, answer := range answers {
		if answer != nil {
			provider, model = answer.Provider, answer.Model
			break
		}
	}

	agg := metrics.AggregateEvaluationResults(evalResults, provider, model)

	path, err := results.SaveToYAML(opts.OutputDir, results.EvalConfig{
		Provider:     provider,
		Model:        model,
		Temperature:  opts.Temperature,
		SystemPrompt: assistant.WebSystemPrompt,
		Prompt:       GroundingPrompt,
		DatasetPath:  opts.DatasetPath,
		SampleSize:   len(records),
	}, evalResults)
	if err != nil {
		return nil, "", fmt.Errorf("failed to save results: %w", err)
	}

	if opts.OutputJSON != "" {
		if err := agg.SaveToJSON(opts.OutputJSON); err != nil {
			return nil, "", err
		}
	}
	if opts.OutputReport != "" {
		if err := agg.SaveDetailedReport(opts.OutputReport); err != nil {
			return nil, "", err
		}
	}

	return agg, path, nil
}

func processRecord(ctx context.Context, locator Locator, record *dataset.GroundingRecord, baseDir string, opts runOptions) (metrics.EvaluationResult, *assistant.Answer) {
	result := metrics.EvaluationResult{
		ID:          record.ID,
		Instruction: record.Instruction,
		DataType:    record.DataType,
	}

	start := time.Now()

	src, err := record.LoadImage(baseDir)
	if err != nil {
		result.Error = err.Error()
		result.ProcessingTime = time.Since(start)
		return result, nil
	}

	expected, err := record.ExpectedBox(src.Width(), src.Height())
	if err != nil {
		result.Error = err.Error()
		result.ProcessingTime = time.Since(start)
		return result, nil
	}
	result.Expected = expected

	answer, err := locator.Locate(ctx, assistant.Query{
		Provider:     opts.Provider,
		Model:        opts.Model,
		SystemPrompt: assistant.WebSystemPrompt,
		Prompt:       fmt.Sprintf(GroundingPrompt, record.Instruction),
		Image:        assistant.ImageFrom(src),
		Temperature:  &opts.Temperature,
	})
	result.ProcessingTime = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("failed to locate: %v", err)
		slog.Warn("Record failed", "id", record.ID, "err", err)
		return result, nil
	}

	result.Reply = answer.Reply
	result.Predicted = answer.Location
	result.Score = metrics.ScoreLocation(answer.Location, answer.ParseErr, expected)
	return result, answer
}
