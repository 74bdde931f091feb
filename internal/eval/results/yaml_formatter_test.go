package results

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/eval/metrics"
)

func TestFilename(t *testing.T) {
	got := Filename("evals", "llava:13b", "2025-01-02_03-04-05")
	want := filepath.Join("evals", "llava_13b-2025-01-02_03-04-05.yaml")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if got := Filename("evals", "", "ts"); !strings.HasSuffix(got, "default-ts.yaml") {
		t.Errorf("Expected default model name, got %s", got)
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	expected := coords.Box{XMin: 0.2, YMin: 0.2, XMax: 0.4, YMax: 0.4}
	box := coords.NewBox(0.25, 0.25, 0.35, 0.35)
	results := []metrics.EvaluationResult{
		{
			ID:             "1",
			Instruction:    "open menu",
			DataType:       "icon",
			Reply:          box.String(),
			Predicted:      &box,
			Expected:       expected,
			Score:          metrics.ScoreLocation(&box, nil, expected),
			ProcessingTime: 1500 * time.Millisecond,
		},
		{
			ID:          "2",
			Instruction: "search",
			Reply:       "no idea",
			Expected:    expected,
			Score:       metrics.ScoreLocation(nil, coords.ErrNotFound, expected),
		},
		{ID: "3", Error: "timeout"},
	}

	dir := t.TempDir()
	path, err := SaveToYAML(dir, EvalConfig{Provider: "gradio", Model: "magma", Timestamp: "ts"}, results)
	if err != nil {
		t.Fatalf("SaveToYAML failed: %v", err)
	}
	if path != filepath.Join(dir, "magma-ts.yaml") {
		t.Errorf("Unexpected path %s", path)
	}

	doc, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}
	if doc.Config.Provider != "gradio" || doc.Config.SampleSize != 3 {
		t.Errorf("Unexpected config %+v", doc.Config)
	}
	if len(doc.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(doc.Results))
	}
	if doc.Results[1].IoU != nil {
		t.Error("Expected no IoU for an unparsed reply")
	}

	back := doc.EvaluationResults()
	if back[0].Predicted == nil || *back[0].Predicted != box {
		t.Errorf("Expected predicted box to survive, got %v", back[0].Predicted)
	}
	if back[0].ProcessingTime != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %s", back[0].ProcessingTime)
	}

	agg := metrics.AggregateEvaluationResults(back, doc.Config.Provider, doc.Config.Model)
	if agg.Hits != 1 || agg.ParseFailures != 1 || agg.FailureCount != 1 || agg.BoxPredictions != 1 {
		t.Errorf("Unexpected aggregate %+v", agg)
	}
}
