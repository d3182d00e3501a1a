package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zeu5/knight-rl/benchmarks/common"
)

var (
	flags      *common.Flags = common.DefaultFlags()
	configPath string

	savePath            string
	rows                int
	cols                int
	startRow            int
	startCol            int
	alpha               float64
	seed                uint64
	materializeDefaults bool

	numRuns                int
	episodes               int
	horizon                int
	maxConsecutiveErrors   int
	maxConsecutiveTimeouts int
	episodeTimeout         time.Duration
	parallelism            int

	debug          bool
	verbose        bool
	snapshotFormat string
	metricsAddr    string
	logLevel       string
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")

	cmd.PersistentFlags().StringVar(&savePath, "save-path", flags.SavePath, "Path to save results")
	cmd.PersistentFlags().IntVar(&rows, "rows", flags.Rows, "Number of board rows")
	cmd.PersistentFlags().IntVar(&cols, "cols", flags.Cols, "Number of board columns")
	cmd.PersistentFlags().IntVar(&startRow, "start-row", flags.StartRow, "Row of the start cell")
	cmd.PersistentFlags().IntVar(&startCol, "start-col", flags.StartCol, "Column of the start cell")
	cmd.PersistentFlags().Float64Var(&alpha, "alpha", flags.Alpha, "Learning rate")
	cmd.PersistentFlags().Uint64Var(&seed, "seed", flags.Seed, "Random seed, 0 seeds from the clock")
	cmd.PersistentFlags().BoolVar(&materializeDefaults, "materialize-defaults", flags.MaterializeDefaults, "Store the default value of every state read")

	cmd.PersistentFlags().IntVar(&numRuns, "num-runs", flags.NumRuns, "Number of runs")
	cmd.PersistentFlags().IntVar(&episodes, "episodes", flags.Episodes, "Number of episodes")
	cmd.PersistentFlags().IntVar(&horizon, "horizon", flags.Horizon, "Maximum steps per episode, 0 plays until terminal")
	cmd.PersistentFlags().IntVar(&maxConsecutiveErrors, "max-consecutive-errors", flags.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	cmd.PersistentFlags().IntVar(&maxConsecutiveTimeouts, "max-consecutive-timeouts", flags.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	cmd.PersistentFlags().DurationVar(&episodeTimeout, "episode-timeout", flags.EpisodeTimeout, "Episode timeout")
	cmd.PersistentFlags().IntVar(&parallelism, "parallelism", flags.Parallelism, "Number of parallel runs")

	cmd.PersistentFlags().BoolVar(&debug, "debug", flags.Debug, "Dump episode traces")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", flags.Verbose, "Print the board after every move")
	cmd.PersistentFlags().StringVar(&snapshotFormat, "snapshot-format", flags.SnapshotFormat, "Table snapshot format: jsonl, parquet or both")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", flags.MetricsAddr, "Address to serve prometheus metrics on")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn or error")
}

// UpdateFlags copies the flags set on the command line over the loaded config
func UpdateFlags(cmd *cobra.Command) {
	set := cmd.Flags().Changed

	if set("save-path") {
		flags.SavePath = savePath
	}
	if set("rows") {
		flags.Rows = rows
	}
	if set("cols") {
		flags.Cols = cols
	}
	if set("start-row") {
		flags.StartRow = startRow
	}
	if set("start-col") {
		flags.StartCol = startCol
	}
	if set("alpha") {
		flags.Alpha = alpha
	}
	if set("seed") {
		flags.Seed = seed
	}
	if set("materialize-defaults") {
		flags.MaterializeDefaults = materializeDefaults
	}

	if set("num-runs") {
		flags.NumRuns = numRuns
	}
	if set("episodes") {
		flags.Episodes = episodes
	}
	if set("horizon") {
		flags.Horizon = horizon
	}
	if set("max-consecutive-errors") {
		flags.MaxConsecutiveErrors = maxConsecutiveErrors
	}
	if set("max-consecutive-timeouts") {
		flags.MaxConsecutiveTimeouts = maxConsecutiveTimeouts
	}
	if set("episode-timeout") {
		flags.EpisodeTimeout = episodeTimeout
	}
	if set("parallelism") {
		flags.Parallelism = parallelism
	}

	if set("debug") {
		flags.Debug = debug
	}
	if set("verbose") {
		flags.Verbose = verbose
	}
	if set("snapshot-format") {
		flags.SnapshotFormat = snapshotFormat
	}
	if set("metrics-addr") {
		flags.MetricsAddr = metricsAddr
	}
	if set("log-level") {
		flags.LogLevel = logLevel
	}
}
