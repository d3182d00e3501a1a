package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeu5/knight-rl/store"
	"github.com/zeu5/knight-rl/util"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	SnapshotJSONL   = store.FormatJSONL
	SnapshotParquet = store.FormatParquet
	SnapshotBoth    = store.FormatBoth
)

type Flags struct {
	BoardFlags `yaml:",inline"`
	LearnFlags `yaml:",inline"`
	RunFlags   `yaml:",inline"`

	SavePath    string `json:"save_path" yaml:"save_path"`
	Parallelism int    `json:"parallelism" yaml:"parallelism"`
	Debug       bool   `json:"debug" yaml:"debug"`
	Verbose     bool   `json:"verbose" yaml:"verbose"`

	SnapshotFormat string `json:"snapshot_format" yaml:"snapshot_format"`
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
}

type BoardFlags struct {
	Rows     int `json:"rows" yaml:"rows"`
	Cols     int `json:"cols" yaml:"cols"`
	StartRow int `json:"start_row" yaml:"start_row"`
	StartCol int `json:"start_col" yaml:"start_col"`
}

type LearnFlags struct {
	Alpha               float64 `json:"alpha" yaml:"alpha"`
	Seed                uint64  `json:"seed" yaml:"seed"`
	MaterializeDefaults bool    `json:"materialize_defaults" yaml:"materialize_defaults"`
}

type RunFlags struct {
	NumRuns                int           `json:"num_runs" yaml:"num_runs"`
	Episodes               int           `json:"episodes" yaml:"episodes"`
	Horizon                int           `json:"horizon" yaml:"horizon"`
	MaxConsecutiveErrors   int           `json:"max_consecutive_errors" yaml:"max_consecutive_errors"`
	MaxConsecutiveTimeouts int           `json:"max_consecutive_timeouts" yaml:"max_consecutive_timeouts"`
	EpisodeTimeout         time.Duration `json:"episode_timeout" yaml:"episode_timeout"`
}

func DefaultFlags() *Flags {
	return &Flags{
		BoardFlags: BoardFlags{
			Rows:     6,
			Cols:     6,
			StartRow: 0,
			StartCol: 0,
		},
		LearnFlags: LearnFlags{
			Alpha:               0.1,
			Seed:                0,
			MaterializeDefaults: false,
		},
		RunFlags: RunFlags{
			NumRuns:                1,
			Episodes:               1000,
			Horizon:                0,
			MaxConsecutiveErrors:   20,
			MaxConsecutiveTimeouts: 20,
			EpisodeTimeout:         10 * time.Second,
		},
		SavePath:       "results",
		Parallelism:    2,
		Debug:          false,
		Verbose:        false,
		SnapshotFormat: SnapshotJSONL,
		MetricsAddr:    "",
		LogLevel:       "info",
	}
}

// LoadFlags builds the configuration with priority: env > file > defaults.
// A missing file is not an error.
func LoadFlags(configPath string) (*Flags, error) {
	flags := DefaultFlags()

	if configPath != "" {
		if err := loadFlagsFile(configPath, flags); err != nil {
			return flags, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFlagsFromEnv(flags)

	if err := flags.Validate(); err != nil {
		return flags, err
	}
	return flags, nil
}

func loadFlagsFile(path string, flags *Flags) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, flags); err != nil {
		if jsonErr := json.Unmarshal(data, flags); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func loadFlagsFromEnv(flags *Flags) {
	envInt("KNIGHT_ROWS", &flags.Rows)
	envInt("KNIGHT_COLS", &flags.Cols)
	envInt("KNIGHT_START_ROW", &flags.StartRow)
	envInt("KNIGHT_START_COL", &flags.StartCol)
	envInt("KNIGHT_EPISODES", &flags.Episodes)
	envInt("KNIGHT_NUM_RUNS", &flags.NumRuns)
	envInt("KNIGHT_PARALLELISM", &flags.Parallelism)

	if v := os.Getenv("KNIGHT_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			flags.Alpha = f
		}
	}
	if v := os.Getenv("KNIGHT_SEED"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			flags.Seed = u
		}
	}
	if v := os.Getenv("KNIGHT_EPISODE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			flags.EpisodeTimeout = d
		}
	}
	if v := os.Getenv("KNIGHT_SAVE_PATH"); v != "" {
		flags.SavePath = v
	}
	if v := os.Getenv("KNIGHT_SNAPSHOT_FORMAT"); v != "" {
		flags.SnapshotFormat = v
	}
	if v := os.Getenv("KNIGHT_METRICS_ADDR"); v != "" {
		flags.MetricsAddr = v
	}
	if v := os.Getenv("KNIGHT_LOG_LEVEL"); v != "" {
		flags.LogLevel = v
	}
}

// Validate checks the configuration for consistency
func (f *Flags) Validate() error {
	if f.Rows <= 0 || f.Cols <= 0 {
		return fmt.Errorf("%w: board %dx%d must have positive dimensions", ErrInvalidConfig, f.Rows, f.Cols)
	}
	if f.StartRow < 0 || f.StartRow >= f.Rows || f.StartCol < 0 || f.StartCol >= f.Cols {
		return fmt.Errorf("%w: start (%d,%d) outside %dx%d board", ErrInvalidConfig, f.StartRow, f.StartCol, f.Rows, f.Cols)
	}
	if f.Alpha <= 0 || f.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v outside (0,1]", ErrInvalidConfig, f.Alpha)
	}
	if f.Episodes < 0 {
		return fmt.Errorf("%w: episodes %d is negative", ErrInvalidConfig, f.Episodes)
	}
	if f.NumRuns < 1 {
		return fmt.Errorf("%w: num_runs %d must be at least 1", ErrInvalidConfig, f.NumRuns)
	}
	if f.Horizon < 0 {
		return fmt.Errorf("%w: horizon %d is negative", ErrInvalidConfig, f.Horizon)
	}
	if f.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism %d must be at least 1", ErrInvalidConfig, f.Parallelism)
	}
	switch f.SnapshotFormat {
	case SnapshotJSONL, SnapshotParquet, SnapshotBoth:
	default:
		return fmt.Errorf("%w: unknown snapshot format %q", ErrInvalidConfig, f.SnapshotFormat)
	}
	if _, err := f.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel parses LogLevel
func (f *Flags) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SavePath, "config.json"), f)
}
