// Package store persists value tables as zstd compressed parquet files and
// writes training snapshots.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const valueTableSchema = "value_table_v1"

// ValueRow is one state of a value table
type ValueRow struct {
	State string  `parquet:"state"`
	Value float64 `parquet:"value"`
}

// Rows converts table entries into rows sorted by state
func Rows(entries map[string]float64) []ValueRow {
	rows := make([]ValueRow, 0, len(entries))
	for state, value := range entries {
		rows = append(rows, ValueRow{State: state, Value: value})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].State < rows[j].State
	})
	return rows
}

// WriteTableParquet writes entries to outPath. The file is written next to
// outPath and renamed into place.
func WriteTableParquet(outPath string, entries map[string]float64) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, Rows(entries),
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", valueTableSchema),
	); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// ReadTableParquet reads a table written by WriteTableParquet
func ReadTableParquet(path string) (map[string]float64, error) {
	rows, err := parquet.ReadFile[ValueRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	entries := make(map[string]float64, len(rows))
	for _, row := range rows {
		entries[row.State] = row.Value
	}
	return entries, nil
}
