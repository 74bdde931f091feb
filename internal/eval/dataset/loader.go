package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader handles loading of grounding datasets
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Dir is the directory relative image paths resolve against
func (l *Loader) Dir() string {
	return filepath.Dir(l.datasetPath)
}

// Load loads records from a dataset file (JSONL or Parquet)
func (l *Loader) Load() ([]GroundingRecord, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit records. A negative limit loads all of them.
func (l *Loader) LoadSample(limit int) ([]GroundingRecord, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// LoadWithFilter loads records matching a filter function
func (l *Loader) LoadWithFilter(filterFn func(*GroundingRecord) bool) ([]GroundingRecord, error) {
	all, err := l.Load()
	if err != nil {
		return nil, err
	}

	var records []GroundingRecord
	for i := range all {
		if filterFn(&all[i]) {
			records = append(records, all[i])
		}
	}
	return records, nil
}

func full(records []GroundingRecord, limit int) bool {
	return limit >= 0 && len(records) >= limit
}

// loadJSONL loads records from a JSONL file, skipping malformed lines
func (l *Loader) loadJSONL(limit int) ([]GroundingRecord, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []GroundingRecord
	scanner := bufio.NewScanner(file)

	// Embedded screenshots make for long lines
	const maxCapacity = 32 * 1024 * 1024
	scanner.Buffer(make([]byte, 1024*1024), maxCapacity)

	lineNum := 0
	for !full(records, limit) && scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		var record GroundingRecord
		if err := json.Unmarshal(line, &record); err != nil {
			slog.Warn("Skipping malformed line", "line", lineNum, "err", err)
			continue
		}
		if record.ID == "" {
			record.ID = fmt.Sprintf("%d", lineNum)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(records), "total_lines", lineNum)

	return records, nil
}

// loadParquet loads records from a Parquet file
func (l *Loader) loadParquet(limit int) ([]GroundingRecord, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath, "limit", limit)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	slog.Debug("Parquet file stats", "size_bytes", info.Size(), "size_mb", info.Size()/1024/1024)

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[GroundingRecord](pf)
	defer reader.Close()

	var records []GroundingRecord

	batchNum := 0
	for !full(records, limit) {
		// the reader reuses slice memory of the rows it is given
		rows := make([]GroundingRecord, 64)
		n, err := reader.Read(rows)
		if n > 0 {
			batchNum++
			if limit >= 0 && n > limit-len(records) {
				n = limit - len(records)
			}
			for i := 0; i < n; i++ {
				if rows[i].ID == "" {
					rows[i].ID = fmt.Sprintf("%d", len(records)+1)
				}
				records = append(records, rows[i])
			}
			slog.Debug("Read batch from Parquet", "batch", batchNum, "rows_in_batch", n, "total_rows_read", len(records))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records), "total_batches", batchNum)

	return records, nil
}
