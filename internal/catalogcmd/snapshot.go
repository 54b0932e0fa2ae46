package catalogcmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/podlift/podlift/internal/printify"
)

// BlueprintRecord is the flat snapshot row written to parquet/jsonl
type BlueprintRecord struct {
	ID    int64  `parquet:"id" json:"id"`
	Title string `parquet:"title" json:"title"`
	Brand string `parquet:"brand" json:"brand"`
	Model string `parquet:"model" json:"model"`
}

func toRecords(blueprints []printify.Blueprint) []BlueprintRecord {
	records := make([]BlueprintRecord, 0, len(blueprints))
	for _, bp := range blueprints {
		records = append(records, BlueprintRecord{
			ID:    int64(bp.ID),
			Title: bp.Title,
			Brand: bp.Brand,
			Model: bp.Model,
		})
	}
	return records
}

func toBlueprints(records []BlueprintRecord) []printify.Blueprint {
	blueprints := make([]printify.Blueprint, 0, len(records))
	for _, r := range records {
		blueprints = append(blueprints, printify.Blueprint{
			ID:    int(r.ID),
			Title: r.Title,
			Brand: r.Brand,
			Model: r.Model,
		})
	}
	return blueprints
}

// WriteSnapshot writes catalog records to a parquet or jsonl file,
// chosen by the output extension.
func WriteSnapshot(path string, records []BlueprintRecord) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return writeParquet(path, records)
	case ".jsonl", ".json":
		return writeJSONL(path, records)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", filepath.Ext(path))
	}
}

// LoadSnapshot reads a catalog snapshot from a parquet or jsonl file
func LoadSnapshot(path string) ([]printify.Blueprint, error) {
	var (
		records []BlueprintRecord
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		records, err = loadParquet(path)
	case ".jsonl", ".json":
		records, err = loadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return toBlueprints(records), nil
}

func writeParquet(path string, records []BlueprintRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[BlueprintRecord](file)
	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return nil
}

func writeJSONL(path string, records []BlueprintRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return w.Flush()
}

func loadParquet(path string) ([]BlueprintRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet snapshot opened", "path", path, "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[BlueprintRecord](pf)
	defer reader.Close()

	var records []BlueprintRecord
	rows := make([]BlueprintRecord, 128) // Read in batches

	for {
		n, err := reader.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if err != nil {
			break
		}
	}

	return records, nil
}

func loadJSONL(path string) ([]BlueprintRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	var records []BlueprintRecord
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record BlueprintRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	return records, nil
}
