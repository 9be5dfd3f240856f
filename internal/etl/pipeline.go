// Package etl masks whole dataset files: it streams records out of CSV,
// JSON, or Parquet input, pushes them through the masking engine with a
// worker pool, and writes the masked dataset back out.
package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/masking"
	"github.com/raaihank/fieldmask/internal/strategy"
)

// Pipeline masks dataset files through a masking engine.
type Pipeline struct {
	engine *masking.Engine
	meta   masking.MetadataLookup
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a masking pipeline. The metadata lookup may be nil;
// records then match on entity and field name only.
func NewPipeline(engine *masking.Engine, meta masking.MetadataLookup, config *Config, logger *zap.Logger) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.ProgressReport <= 0 {
		config.ProgressReport = 10000
	}
	return &Pipeline{
		engine: engine,
		meta:   meta,
		config: config,
		logger: logger,
	}
}

// ProcessFile masks a dataset file (CSV, Parquet, or JSON lines) and writes
// the masked dataset to the configured output path. CSV input produces CSV
// output with the same header; Parquet and JSON input produce JSON lines,
// since masking replaces typed columns with strings.
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	p.logger.Info("Starting masking pipeline",
		zap.String("file", filePath),
		zap.String("entity", p.config.Entity),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount))

	start := time.Now()
	result := &ProcessingResult{}

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	outputPath := p.config.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(filePath, format)
	}
	result.OutputPath = outputPath

	out, err := os.Create(outputPath)
	if err != nil {
		return result, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	var procErr error
	switch format {
	case FormatCSV:
		procErr = p.processCSV(ctx, filePath, out, result)
	case FormatParquet:
		procErr = p.processParquet(ctx, filePath, out, result)
	case FormatJSON:
		procErr = p.processJSON(ctx, filePath, out, result)
	default:
		return result, fmt.Errorf("unsupported file format: %s", format)
	}
	if procErr != nil {
		return result, fmt.Errorf("%s processing failed: %w", format, procErr)
	}

	result.Duration = time.Since(start)

	p.logger.Info("Masking pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("masked_fields", result.MaskedFieldCount),
		zap.String("output", result.OutputPath),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func defaultOutputPath(input string, format FileFormat) string {
	base := strings.TrimSuffix(input, "."+string(format))
	if format == FormatCSV {
		return base + ".masked.csv"
	}
	return base + ".masked.jsonl"
}

// processCSV masks a CSV file, keeping its header and column order.
func (p *Pipeline) processCSV(ctx context.Context, filePath string, out io.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	writer := csv.NewWriter(out)
	defer writer.Flush()
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	readBatch := func() ([]masking.Record, error) {
		var batch []masking.Record
		for len(batch) < p.config.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}

			record := make(masking.Record, len(header))
			for i, name := range header {
				if i < len(row) {
					record[name] = row[i]
				}
			}
			batch = append(batch, record)
		}
		return batch, nil
	}

	writeBatch := func(records []masking.Record) error {
		for _, record := range records {
			row := make([]string, len(header))
			for i, name := range header {
				row[i] = strategy.Stringify(record[name])
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	return p.processBatches(ctx, readBatch, writeBatch, result)
}

// processParquet masks a Parquet file. Rows are decoded through the file's
// own schema into generic records.
func (p *Pipeline) processParquet(ctx context.Context, filePath string, out io.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	schema := reader.Schema()
	columns := make([]string, 0, len(schema.Fields()))
	for _, field := range schema.Fields() {
		columns = append(columns, field.Name())
	}

	encoder := json.NewEncoder(out)
	rows := make([]parquet.Row, p.config.BatchSize)

	readBatch := func() ([]masking.Record, error) {
		n, err := reader.ReadRows(rows)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read Parquet rows: %w", err)
		}

		batch := make([]masking.Record, 0, n)
		for _, row := range rows[:n] {
			record := make(masking.Record, len(columns))
			for _, value := range row {
				col := value.Column()
				if col < 0 || col >= len(columns) {
					continue
				}
				record[columns[col]] = parquetValue(value)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}

	writeBatch := func(records []masking.Record) error {
		for _, record := range records {
			if err := encoder.Encode(record); err != nil {
				return err
			}
		}
		return nil
	}

	return p.processBatches(ctx, readBatch, writeBatch, result)
}

// parquetValue converts a parquet value to the engine's scalar model.
func parquetValue(v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}

// processJSON masks a JSON lines file (one object per line).
func (p *Pipeline) processJSON(ctx context.Context, filePath string, out io.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	encoder := json.NewEncoder(out)

	readBatch := func() ([]masking.Record, error) {
		var batch []masking.Record
		for len(batch) < p.config.BatchSize {
			var record masking.Record
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				result.ProcessedFailed++
				continue
			}
			batch = append(batch, record)
		}
		return batch, nil
	}

	writeBatch := func(records []masking.Record) error {
		for _, record := range records {
			if err := encoder.Encode(record); err != nil {
				return err
			}
		}
		return nil
	}

	return p.processBatches(ctx, readBatch, writeBatch, result)
}

// processBatches drives the read-mask-write loop until the input drains.
func (p *Pipeline) processBatches(
	ctx context.Context,
	readBatch func() ([]masking.Record, error),
	writeBatch func([]masking.Record) error,
	result *ProcessingResult,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		masked, maskedFields, err := p.maskBatch(ctx, batch)
		if err != nil {
			// A strategy hard error (missing key, uninitialized vault)
			// aborts the run; writing partially unmasked output is worse
			// than failing.
			return fmt.Errorf("failed to mask batch: %w", err)
		}

		if err := writeBatch(masked); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}

		result.TotalRecords += int64(len(batch))
		result.ProcessedOK += int64(len(masked))
		result.MaskedFieldCount += maskedFields

		if result.TotalRecords%int64(p.config.ProgressReport) < int64(p.config.BatchSize) {
			p.logger.Info("Masking progress",
				zap.Int64("records", result.TotalRecords),
				zap.Int64("masked_fields", result.MaskedFieldCount))
		}
	}

	return nil
}

// maskBatch masks one batch with the worker pool, preserving record order.
func (p *Pipeline) maskBatch(ctx context.Context, batch []masking.Record) ([]masking.Record, int64, error) {
	masked := make([]masking.Record, len(batch))
	counts := make([]int, len(batch))

	indexes := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < p.config.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				rr, err := p.engine.MaskRecord(ctx, p.config.Entity, batch[i], p.meta)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				masked[i] = rr.Masked
				counts[i] = len(rr.MaskedFields)
			}
		}()
	}

	for i := range batch {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	if firstErr != nil {
		return nil, 0, firstErr
	}

	var total int64
	for _, c := range counts {
		total += int64(c)
	}
	return masked, total, nil
}
