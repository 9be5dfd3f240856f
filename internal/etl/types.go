package etl

import (
	"path/filepath"
	"strings"
	"time"
)

// FileFormat represents a supported dataset file format
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
	FormatUnknown FileFormat = "unknown"
)

// DetectFileFormat detects the file format from the file extension
func DetectFileFormat(filePath string) FileFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// Config contains pipeline configuration
type Config struct {
	Entity         string `yaml:"entity" mapstructure:"entity"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	WorkerCount    int    `yaml:"workers" mapstructure:"workers"`
	OutputPath     string `yaml:"output_path" mapstructure:"output_path"`
	ProgressReport int    `yaml:"progress_report" mapstructure:"progress_report"`
}

// ProcessingResult summarizes a pipeline run
type ProcessingResult struct {
	TotalRecords     int64         `json:"total_records"`
	ProcessedOK      int64         `json:"processed_ok"`
	ProcessedFailed  int64         `json:"processed_failed"`
	MaskedFieldCount int64         `json:"masked_field_count"`
	OutputPath       string        `json:"output_path"`
	Duration         time.Duration `json:"duration"`
	Errors           []string      `json:"errors,omitempty"`
}
