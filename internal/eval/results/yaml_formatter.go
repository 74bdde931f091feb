package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"systemprompt"`
	Prompt       string  `yaml:"prompt"`
	Temperature  float64 `yaml:"temperature"`
	DatasetPath  string  `yaml:"datasetpath"`
	SampleSize   int     `yaml:"samplesize"`
	Timestamp    string  `yaml:"timestamp"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier        string     `yaml:"identifier"`
	Instruction       string     `yaml:"instruction"`
	DataType          string     `yaml:"datatype,omitempty"`
	ProviderResponse  string     `yaml:"providerresponse"`
	Predicted         string     `yaml:"predicted,omitempty"`
	Expected          [4]float64 `yaml:"expected,flow"`
	Outcome           string     `yaml:"outcome"`
	Hit               bool       `yaml:"hit"`
	IoU               *float64   `yaml:"iou,omitempty"`
	CenterDistance    float64    `yaml:"centerdistance"`
	ProcessingSeconds float64    `yaml:"processingseconds"`
	Error             string     `yaml:"error,omitempty"`
}

// EvalSpec represents the complete evaluation specification
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

// Filename is evals/<model>-<timestamp>.yaml under dir
func Filename(dir, model, timestamp string) string {
	if model == "" {
		model = "default"
	}
	model = strings.NewReplacer("/", "_", ":", "_").Replace(model)
	return filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", model, timestamp))
}

// SaveToYAML saves evaluation results to a YAML file in dir and returns its path
func SaveToYAML(dir string, cfg EvalConfig, results []metrics.EvaluationResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = len(results)
	}

	spec := EvalSpec{
		Config:  cfg,
		Results: make([]EvalResult, 0, len(results)),
	}
	for _, r := range results {
		spec.Results = append(spec.Results, toEvalResult(r))
	}

	filename := Filename(dir, cfg.Model, cfg.Timestamp)

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}

func toEvalResult(r metrics.EvaluationResult) EvalResult {
	out := EvalResult{
		Identifier:        r.ID,
		Instruction:       r.Instruction,
		DataType:          r.DataType,
		ProviderResponse:  r.Reply,
		Expected:          [4]float64{r.Expected.XMin, r.Expected.YMin, r.Expected.XMax, r.Expected.YMax},
		Outcome:           r.Score.Outcome,
		Hit:               r.Score.Hit,
		CenterDistance:    r.Score.CenterDistance,
		ProcessingSeconds: r.ProcessingTime.Seconds(),
		Error:             r.Error,
	}
	if r.Predicted != nil {
		out.Predicted = r.Predicted.String()
	}
	if r.Score.HasIoU {
		iou := r.Score.IoU
		out.IoU = &iou
	}
	return out
}

// LoadYAML reads an evaluation file written by SaveToYAML
func LoadYAML(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &spec, nil
}

// EvaluationResults converts the stored results back for aggregation
func (s *EvalSpec) EvaluationResults() []metrics.EvaluationResult {
	out := make([]metrics.EvaluationResult, 0, len(s.Results))
	for _, r := range s.Results {
		er := metrics.EvaluationResult{
			ID:          r.Identifier,
			Instruction: r.Instruction,
			DataType:    r.DataType,
			Reply:       r.ProviderResponse,
			Expected:    coords.Box{XMin: r.Expected[0], YMin: r.Expected[1], XMax: r.Expected[2], YMax: r.Expected[3]},
			Score: metrics.Score{
				Outcome:        r.Outcome,
				Hit:            r.Hit,
				CenterDistance: r.CenterDistance,
			},
			ProcessingTime: time.Duration(r.ProcessingSeconds * float64(time.Second)),
			Error:          r.Error,
		}
		if r.IoU != nil {
			er.Score.IoU = *r.IoU
			er.Score.HasIoU = true
		}
		if r.Predicted != "" {
			if loc, err := coords.Parse(r.Predicted); err == nil {
				er.Predicted = &loc
			}
		}
		out = append(out, er)
	}
	return out
}
