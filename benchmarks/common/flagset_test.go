package common

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFlagsValid(t *testing.T) {
	require.NoError(t, DefaultFlags().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Flags)
	}{
		{"zero rows", func(f *Flags) { f.Rows = 0 }},
		{"negative cols", func(f *Flags) { f.Cols = -2 }},
		{"start row outside", func(f *Flags) { f.StartRow = f.Rows }},
		{"start col negative", func(f *Flags) { f.StartCol = -1 }},
		{"zero alpha", func(f *Flags) { f.Alpha = 0 }},
		{"alpha above one", func(f *Flags) { f.Alpha = 1.01 }},
		{"negative episodes", func(f *Flags) { f.Episodes = -1 }},
		{"no runs", func(f *Flags) { f.NumRuns = 0 }},
		{"negative horizon", func(f *Flags) { f.Horizon = -1 }},
		{"no parallelism", func(f *Flags) { f.Parallelism = 0 }},
		{"snapshot format", func(f *Flags) { f.SnapshotFormat = "csv" }},
		{"log level", func(f *Flags) { f.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFlags()
			tt.mutate(f)
			assert.ErrorIs(t, f.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadFlagsMissingFile(t *testing.T) {
	f, err := LoadFlags(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFlags(), f)
}

func TestLoadFlagsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rows: 5
cols: 7
start_row: 2
alpha: 0.25
seed: 17
episode_timeout: 3s
snapshot_format: both
log_level: debug
`), 0644))

	f, err := LoadFlags(path)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Rows)
	assert.Equal(t, 7, f.Cols)
	assert.Equal(t, 2, f.StartRow)
	assert.Equal(t, 0.25, f.Alpha)
	assert.Equal(t, uint64(17), f.Seed)
	assert.Equal(t, 3*time.Second, f.EpisodeTimeout)
	assert.Equal(t, SnapshotBoth, f.SnapshotFormat)
	assert.Equal(t, 1000, f.Episodes)
}

func TestLoadFlagsEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rows: 5\ncols: 5\n"), 0644))

	t.Setenv("KNIGHT_ROWS", "8")
	t.Setenv("KNIGHT_ALPHA", "0.5")
	t.Setenv("KNIGHT_EPISODE_TIMEOUT", "1m")
	t.Setenv("KNIGHT_SAVE_PATH", "/tmp/knight")

	f, err := LoadFlags(path)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Rows)
	assert.Equal(t, 5, f.Cols)
	assert.Equal(t, 0.5, f.Alpha)
	assert.Equal(t, time.Minute, f.EpisodeTimeout)
	assert.Equal(t, "/tmp/knight", f.SavePath)
}

func TestLoadFlagsRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alpha: 2\n"), 0644))

	_, err := LoadFlags(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadFlagsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rows: [1, 2\n"), 0644))

	_, err := LoadFlags(path)
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	f := DefaultFlags()
	f.SavePath = filepath.Join(t.TempDir(), "out")
	require.NoError(t, f.Record())

	bs, err := os.ReadFile(filepath.Join(f.SavePath, "config.json"))
	require.NoError(t, err)

	var saved map[string]interface{}
	require.NoError(t, json.Unmarshal(bs, &saved))
	assert.Equal(t, 6.0, saved["rows"])
	assert.Equal(t, "jsonl", saved["snapshot_format"])
}
