package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeu5/knight-rl/policies"
)

var ErrUnknownFormat = errors.New("unknown snapshot format")

const (
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
	FormatBoth    = "both"
)

// SaveSnapshot writes table into dir as name.jsonl, name.parquet or both and
// returns the paths written.
func SaveSnapshot(table *policies.ValueTable, dir, name, format string) ([]string, error) {
	var paths []string
	switch format {
	case FormatJSONL, FormatParquet, FormatBoth:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if format == FormatJSONL || format == FormatBoth {
		p := filepath.Join(dir, name+".jsonl")
		if err := table.Record(p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if format == FormatParquet || format == FormatBoth {
		p := filepath.Join(dir, name+".parquet")
		if err := WriteTableParquet(p, table.Entries()); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// LoadTable reads a table from a .jsonl or .parquet file
func LoadTable(path string, opts ...policies.TableOption) (*policies.ValueTable, error) {
	table := policies.NewValueTable(opts...)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		entries, err := ReadTableParquet(path)
		if err != nil {
			return nil, err
		}
		table.Load(entries)
	default:
		if err := table.Read(path); err != nil {
			return nil, err
		}
	}
	return table, nil
}
