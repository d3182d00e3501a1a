package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zeu5/knight-rl/benchmarks/knight"
	"github.com/zeu5/knight-rl/metrics"
	"github.com/zeu5/knight-rl/policies"
	"github.com/zeu5/knight-rl/store"
	"github.com/zeu5/knight-rl/util"
)

func TrainCommand() *cobra.Command {
	var stopOnSuccess bool
	var resume string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the value learner until the episode budget is spent or interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()

			runID := uuid.NewString()
			runDir := path.Join(flags.SavePath, runID)
			if err := util.SaveJson(path.Join(runDir, "config.json"), flags); err != nil {
				return err
			}

			var opts []knight.LearnerOption
			if resume != "" {
				var tableOpts []policies.TableOption
				if flags.MaterializeDefaults {
					tableOpts = append(tableOpts, policies.WithMaterializedDefaults())
				}
				table, err := store.LoadTable(resume, tableOpts...)
				if err != nil {
					return err
				}
				slog.Info("resuming from table", "path", resume, "states", table.Size())
				opts = append(opts, knight.WithTable(table))
			}
			if flags.Verbose {
				opts = append(opts, knight.WithObserver(knight.NewPrinter(os.Stdout).Print))
			}

			learner, err := knight.NewLearner(knight.LearnerConfigFromFlags(flags), opts...)
			if err != nil {
				return err
			}
			trainer := knight.NewTrainer(learner, knight.TrainConfig{
				Episodes:      flags.Episodes,
				StopOnSuccess: stopOnSuccess,
			})

			if flags.MetricsAddr != "" {
				recorder := metrics.NewRecorder()
				go func() {
					if err := recorder.Serve(ctx, flags.MetricsAddr); err != nil {
						slog.Error("metrics server stopped", "err", err)
					}
				}()
				trainer.OnEpisode(func(r knight.EpisodeReport) {
					recorder.ObserveEpisode(r.Visited, r.Cells, r.Covered, r.TableSize)
				})
			}

			if !flags.Verbose {
				printer := util.NewTerminalPrinter(500 * time.Millisecond)
				progress := printer.NewOutput()
				printer.Start(ctx)
				defer printer.Stop()
				trainer.OnEpisode(func(r knight.EpisodeReport) {
					progress.TrySet(fmt.Sprintf(
						"Run %s, Episode %d, Visited %d/%d, Successes: %d, States: %d",
						runID, r.Episode, r.Visited, r.Cells, r.Successes, r.TableSize,
					))
				})
			}

			snapshotDir := path.Join(runDir, "snapshots")
			trainer.OnSuccess(func(r knight.EpisodeReport) error {
				paths, err := store.SaveSnapshot(learner.Table(), snapshotDir, fmt.Sprintf("episode_%d", r.Episode), flags.SnapshotFormat)
				if err != nil {
					return fmt.Errorf("snapshot: %w", err)
				}
				slog.Debug("saved snapshot", "paths", paths)
				return nil
			})

			slog.Info("training", "run", runID, "rows", flags.Rows, "cols", flags.Cols, "episodes", flags.Episodes)
			result, trainErr := trainer.Run(ctx)

			if _, err := store.SaveSnapshot(learner.Table(), runDir, "table", flags.SnapshotFormat); err != nil {
				return err
			}
			if err := util.SaveJson(path.Join(runDir, "result.json"), result); err != nil {
				return err
			}
			slog.Info("training finished",
				"run", runID,
				"episodes", result.Episodes,
				"successes", result.Successes,
				"first_success", result.FirstSuccess,
				"max_visited", result.MaxVisited,
				"states", learner.Table().Size(),
			)
			return trainErr
		},
	}
	cmd.Flags().BoolVar(&stopOnSuccess, "stop-on-success", false, "Stop after the first covered episode")
	cmd.Flags().StringVar(&resume, "resume", "", "Continue from a saved .jsonl or .parquet table")
	return cmd
}

func PlayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <table>",
		Args:  cobra.ExactArgs(1),
		Short: "Play one episode with a saved table, printing every move",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := store.LoadTable(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			learner, err := knight.NewLearner(
				knight.LearnerConfigFromFlags(flags),
				knight.WithTable(table),
				knight.WithObserver(knight.NewPrinter(out).Print),
			)
			if err != nil {
				return err
			}
			if err := learner.Simulate(); err != nil {
				return err
			}
			board := learner.Board()
			fmt.Fprintf(out, "visited %d/%d cells, covered: %v\n", board.Visited(), board.Cells(), board.IsCovered())
			return nil
		},
	}
	return cmd
}

// experimentSummary is the JSON view of a core.ExperimentResult
type experimentSummary struct {
	CompletedEpisodes int    `json:"completed_episodes"`
	TotalEpisodes     int    `json:"total_episodes"`
	ErrorEpisodes     int    `json:"error_episodes"`
	TimeoutEpisodes   int    `json:"timeout_episodes"`
	SuccessEpisodes   int    `json:"success_episodes"`
	TotalTimeSteps    int    `json:"total_timesteps"`
	Error             string `json:"error,omitempty"`
}

func CompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the value learner against a random walk and a visit count learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()

			if err := flags.Record(); err != nil {
				return err
			}
			cmp, err := knight.PrepareComparison(flags)
			if err != nil {
				return err
			}
			results := cmp.Run(ctx, flags.NumRuns, knight.RunConfigFromFlags(flags), flags.Parallelism)

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			summaries := make(map[string]experimentSummary, len(results))
			for _, name := range names {
				r := results[name]
				s := experimentSummary{
					CompletedEpisodes: r.CompletedEpisodes,
					TotalEpisodes:     r.TotalEpisodes,
					ErrorEpisodes:     r.ErrorEpisodes,
					TimeoutEpisodes:   r.TimeoutEpisodes,
					SuccessEpisodes:   r.SuccessEpisodes,
					TotalTimeSteps:    r.TotalTimeSteps,
				}
				if r.IsError() {
					s.Error = r.Error.Error()
				}
				summaries[name] = s
				slog.Info("experiment finished",
					"experiment", name,
					"episodes", r.TotalEpisodes,
					"successes", r.SuccessEpisodes,
					"errors", r.ErrorEpisodes,
					"timeouts", r.TimeoutEpisodes,
				)
			}
			return util.SaveJson(path.Join(flags.SavePath, "results.json"), summaries)
		},
	}
	return cmd
}

func ExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <in> <out>",
		Args:  cobra.ExactArgs(2),
		Short: "Convert a saved table between .jsonl and .parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := store.LoadTable(args[0])
			if err != nil {
				return err
			}
			out := args[1]
			switch strings.ToLower(filepath.Ext(out)) {
			case ".parquet":
				err = store.WriteTableParquet(out, table.Entries())
			case ".jsonl":
				err = table.Record(out)
			default:
				return fmt.Errorf("%w: %q", store.ErrUnknownFormat, filepath.Ext(out))
			}
			if err != nil {
				return err
			}
			slog.Info("exported table", "in", args[0], "out", out, "states", table.Size())
			return nil
		},
	}
	return cmd
}
