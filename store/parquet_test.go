package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeu5/knight-rl/policies"
)

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "table.parquet")
	entries := map[string]float64{
		"200000000000": 0.5,
		"120000000000": 0.45,
		"111111111112": 1.0,
	}

	require.NoError(t, WriteTableParquet(path, entries))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := ReadTableParquet(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestParquetEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteTableParquet(path, map[string]float64{}))

	got, err := ReadTableParquet(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRowsSorted(t *testing.T) {
	rows := Rows(map[string]float64{"b": 1, "a": 0, "c": 0.5})
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].State)
	assert.Equal(t, "b", rows[1].State)
	assert.Equal(t, "c", rows[2].State)
}

func TestReadMissingParquet(t *testing.T) {
	_, err := ReadTableParquet(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}

func TestSaveSnapshotBoth(t *testing.T) {
	dir := t.TempDir()
	table := policies.NewValueTable()
	table.Set("2100", 0.0)
	table.Set("1200", 0.55)

	paths, err := SaveSnapshot(table, dir, "episode_3", FormatBoth)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	fromJSON, err := LoadTable(paths[0])
	require.NoError(t, err)
	fromParquet, err := LoadTable(paths[1])
	require.NoError(t, err)

	assert.Equal(t, table.Entries(), fromJSON.Entries())
	assert.Equal(t, table.Entries(), fromParquet.Entries())
}

func TestSaveSnapshotUnknownFormat(t *testing.T) {
	_, err := SaveSnapshot(policies.NewValueTable(), t.TempDir(), "x", "csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
