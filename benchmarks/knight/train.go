package knight

import (
	"context"
	"log/slog"
)

// EpisodeReport summarises one finished episode of a Trainer
type EpisodeReport struct {
	Episode        int
	Visited        int
	Cells          int
	Covered        bool
	Successes      int
	TableSize      int
	DistinctValues int
}

// TrainResult summarises a training session
type TrainResult struct {
	Episodes     int
	Successes    int
	FirstSuccess int
	MaxVisited   int
}

type TrainConfig struct {
	// Episodes to play, zero plays until the context is cancelled
	Episodes int
	// StopOnSuccess ends training after the first covered episode
	StopOnSuccess bool
}

// Trainer repeats episodes of a Learner and reports on them
type Trainer struct {
	learner *Learner
	config  TrainConfig

	onEpisode []func(EpisodeReport)
	onSuccess []func(EpisodeReport) error
}

func NewTrainer(l *Learner, config TrainConfig) *Trainer {
	return &Trainer{
		learner: l,
		config:  config,
	}
}

// OnEpisode registers fn to be called after every episode
func (t *Trainer) OnEpisode(fn func(EpisodeReport)) {
	t.onEpisode = append(t.onEpisode, fn)
}

// OnSuccess registers fn to be called after every covered episode. An error
// stops training.
func (t *Trainer) OnSuccess(fn func(EpisodeReport) error) {
	t.onSuccess = append(t.onSuccess, fn)
}

func (t *Trainer) Learner() *Learner {
	return t.learner
}

// Run plays episodes until the configured count is reached or ctx is done.
// Cancellation is not an error, the result covers the episodes played.
func (t *Trainer) Run(ctx context.Context) (TrainResult, error) {
	result := TrainResult{FirstSuccess: -1}
	for episode := 0; t.config.Episodes <= 0 || episode < t.config.Episodes; episode++ {
		select {
		case <-ctx.Done():
			return result, nil
		default:
		}

		if err := t.learner.Simulate(); err != nil {
			return result, err
		}
		board := t.learner.Board()
		table := t.learner.Table()

		result.Episodes++
		if board.Visited() > result.MaxVisited {
			result.MaxVisited = board.Visited()
		}
		report := EpisodeReport{
			Episode:   episode,
			Visited:   board.Visited(),
			Cells:     board.Cells(),
			Covered:   board.IsCovered(),
			TableSize: table.Size(),
		}
		if report.Covered {
			result.Successes++
			if result.FirstSuccess < 0 {
				result.FirstSuccess = episode
			}
		}
		report.Successes = result.Successes
		for _, fn := range t.onEpisode {
			fn(report)
		}
		if !report.Covered {
			continue
		}

		report.DistinctValues = table.DistinctValues()
		slog.Info("board covered",
			"episode", episode,
			"table_size", report.TableSize,
			"distinct_values", report.DistinctValues,
			"successes", result.Successes,
		)
		for _, fn := range t.onSuccess {
			if err := fn(report); err != nil {
				return result, err
			}
		}
		if t.config.StopOnSuccess {
			return result, nil
		}
	}
	return result, nil
}
