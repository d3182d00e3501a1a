package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/gosuri/uilive"
)

var (
	ErrTooManyTimeouts = errors.New("too many timeouts")
	ErrTooManyErrors   = errors.New("too many errors")
	ErrNoAction        = errors.New("policy picked no action")
)

type experimentRunContext struct {
	run       int
	ctx       context.Context
	analyzers map[string]Analyzer

	writer io.Writer

	*RunConfig
}

type ExperimentResult struct {
	CompletedEpisodes int
	TotalEpisodes     int
	ErrorEpisodes     int
	TimeoutEpisodes   int
	TotalTimeSteps    int
	SuccessEpisodes   int

	Error    error
	Datasets map[string]DataSet
}

func (r *ExperimentResult) IsError() bool {
	return r.Error != nil
}

// playEpisode runs a single episode to completion and reports through eCtx.
// It always closes the episode exactly once.
func (e *Experiment) playEpisode(eCtx *EpisodeContext, horizon int) {
	state, err := e.Environment.Reset()
	if err != nil {
		eCtx.Error(err)
		return
	}
	e.Policy.ResetEpisode(eCtx)
	for step := 0; horizon <= 0 || step < horizon; step++ {
		if state.Terminal() {
			break
		}
		select {
		case <-eCtx.Context.Done():
			if errors.Is(eCtx.Context.Err(), context.DeadlineExceeded) {
				eCtx.Timeout()
			} else {
				eCtx.Error(eCtx.Context.Err())
			}
			return
		default:
		}

		sCtx := &StepContext{Step: step, EpisodeContext: eCtx}
		action := e.Policy.PickAction(
			sCtx,
			state,
			state.Actions(),
		)
		if action == nil {
			eCtx.Error(ErrNoAction)
			return
		}
		nextState, err := e.Environment.Step(action, sCtx)
		if err != nil {
			eCtx.Error(err)
			return
		}
		e.Policy.UpdateStep(sCtx, state, action, nextState)
		eCtx.Trace.AddStep(&Step{
			State:     state,
			Action:    action,
			NextState: nextState,
		})
		state = nextState
	}
	e.Policy.UpdateEpisode(eCtx)
	eCtx.Finish()
}

func (e *Experiment) run(ctx *experimentRunContext) *ExperimentResult {
	result := &ExperimentResult{
		Datasets: make(map[string]DataSet),
	}
	e.Policy.Reset()
	writer := ctx.writer
	if writer == nil {
		writer = io.Discard
	}

	consecutiveErrors := 0
	consecutiveTimeouts := 0
EpisodeLoop:
	for episode := 0; episode < ctx.Episodes; episode++ {
		select {
		case <-ctx.ctx.Done():
			result.Error = errors.New("context cancelled")
			break EpisodeLoop
		default:
		}

		fmt.Fprintf(
			writer,
			"Experiment: %s, Run %d, Episode %d/%d, Timesteps: %d, Successes: %d, Error: %d, Timedout: %d\n",
			e.Name, ctx.run, episode, ctx.Episodes, result.TotalTimeSteps, result.SuccessEpisodes, result.ErrorEpisodes, result.TimeoutEpisodes,
		)
		episodeCtx := ctx.ctx
		var cancel context.CancelFunc = func() {}
		if ctx.EpisodeTimeout > 0 {
			episodeCtx, cancel = context.WithTimeout(ctx.ctx, ctx.EpisodeTimeout)
		}
		eCtx := NewEpisodeContext(episodeCtx)
		eCtx.Run = ctx.run
		eCtx.Episode = episode
		eCtx.Horizon = ctx.Horizon
		eCtx.StartTimeStep = result.TotalTimeSteps

		go e.playEpisode(eCtx, ctx.Horizon)

		// the episode goroutine observes the deadline itself, waiting on it
		// keeps the policy from being touched by two episodes at once
		<-eCtx.Done()
		cancel()
		errorred := eCtx.IsError()
		timedout := eCtx.IsTimeout()

		if errorred {
			slog.Debug("episode failed", "experiment", e.Name, "run", ctx.run, "episode", episode, "err", eCtx.Err())
			result.ErrorEpisodes++
			if consecutiveErrors++; ctx.ThresholdConsecutiveErrors > 0 && consecutiveErrors >= ctx.ThresholdConsecutiveErrors {
				result.Error = ErrTooManyErrors
				break EpisodeLoop
			}
		} else {
			consecutiveErrors = 0
		}
		if timedout {
			result.TimeoutEpisodes++
			if consecutiveTimeouts++; ctx.ThresholdConsecutiveTimeouts > 0 && consecutiveTimeouts >= ctx.ThresholdConsecutiveTimeouts {
				result.Error = ErrTooManyTimeouts
				break EpisodeLoop
			}
		} else {
			consecutiveTimeouts = 0
		}

		if !errorred && !timedout {
			result.TotalTimeSteps += eCtx.Trace.Len()
			result.CompletedEpisodes++
			if eCtx.Trace.Succeeded() {
				result.SuccessEpisodes++
			}
		}
		result.TotalEpisodes++

		for _, a := range ctx.analyzers {
			a.Analyze(eCtx, eCtx.Trace)
		}
	}
	if result.Error != nil {
		fmt.Fprintf(writer, "Experiment: %s, Run %d, Error: %v\n", e.Name, ctx.run, result.Error)
		slog.Warn("experiment stopped", "experiment", e.Name, "run", ctx.run, "err", result.Error)
	}

	for name, a := range ctx.analyzers {
		result.Datasets[name] = a.DataSet()
	}

	return result
}

// Run executes the experiments one after another for the given number of runs.
// Results of the last run are returned.
func (c *Comparison) Run(ctx context.Context, runs int, rConfig *RunConfig) map[string]*ExperimentResult {
	var results map[string]*ExperimentResult
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		results = make(map[string]*ExperimentResult)

		// Run experiments
		for _, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return results
			default:
			}
			rCtx := &experimentRunContext{
				run:       run,
				ctx:       ctx,
				analyzers: make(map[string]Analyzer),
				RunConfig: rConfig,
			}

			for name, a := range c.Analyzers {
				a.Reset()
				rCtx.analyzers[name] = a
			}

			results[e.Name] = e.run(rCtx)
		}

		names, datasets := gatherDatasets(results, c.analyzerNames())
		for name, cmp := range c.Comparators {
			cmp.Compare(names, datasets[name])
		}
	}
	return results
}

func (c *Comparison) analyzerNames() []string {
	names := make([]string, 0, len(c.Analyzers))
	for name := range c.Analyzers {
		names = append(names, name)
	}
	return names
}

// gatherDatasets groups the data sets of every experiment by analyzer. Experiment
// names are sorted so comparators see a stable order.
func gatherDatasets(results map[string]*ExperimentResult, analyzerNames []string) ([]string, map[string][]DataSet) {
	experimentNames := make([]string, 0, len(results))
	for name := range results {
		experimentNames = append(experimentNames, name)
	}
	sort.Strings(experimentNames)

	datasets := make(map[string][]DataSet)
	for _, expName := range experimentNames {
		result := results[expName]
		for _, name := range analyzerNames {
			if result.IsError() {
				datasets[name] = append(datasets[name], nil)
			} else {
				datasets[name] = append(datasets[name], result.Datasets[name])
			}
		}
	}
	return experimentNames, datasets
}

// parallelWorker is a worker that runs experiments
type parallelWorker struct {
	id int
}

// parallelWork is a struct that contains all the information needed to run an experiment
type parallelWork struct {
	experiment *ParallelExperiment
	comp       *ParallelComparison
	runNumber  int
	writer     io.Writer
	rConfig    *RunConfig
}

// parallelResult is a struct that contains the result of running an experiment
type parallelResult struct {
	experimentName string
	run            int
	result         *ExperimentResult
}

// Worker main loop that consumes work from a channel
func (w *parallelWorker) run(ctx context.Context, workCh <-chan *parallelWork, resultsCh chan<- *parallelResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case work, more := <-workCh:
			if !more {
				return
			}
			result := w.runWork(ctx, work)
			select {
			case resultsCh <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Run an experiment by constructing the experiment context, *Experiment
func (w *parallelWorker) runWork(ctx context.Context, work *parallelWork) *parallelResult {
	eCtx := &experimentRunContext{
		run:       work.runNumber,
		ctx:       ctx,
		analyzers: make(map[string]Analyzer),
		writer:    work.writer,
		RunConfig: work.rConfig,
	}

	for name, aC := range work.comp.Analyzers {
		eCtx.analyzers[name] = aC.NewAnalyzer(work.experiment.Name, work.runNumber)
	}

	// Construct the experiment
	exp := &Experiment{
		Name:        work.experiment.Name,
		Environment: work.experiment.Environment.NewEnvironment(w.id),
		Policy:      work.experiment.Policy.NewPolicy(),
	}

	// Run the experiment
	result := exp.run(eCtx)

	return &parallelResult{
		experimentName: work.experiment.Name,
		run:            work.runNumber,
		result:         result,
	}
}

// Run executes every experiment on a pool of workers, once per run. Each
// worker builds its own environment and policy so nothing is shared.
func (c *ParallelComparison) Run(ctx context.Context, runs int, rConfig *RunConfig, parallelism int) map[string]*ExperimentResult {
	if parallelism < 1 {
		parallelism = 1
	}
	var results map[string]*ExperimentResult
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		writer := uilive.New()
		writer.Start()
		fmt.Fprintf(writer, "Run %d\n", run)

		workCh := make(chan *parallelWork, len(c.Experiments))
		resultsCh := make(chan *parallelResult, len(c.Experiments))

		// Start workers
		for i := 0; i < parallelism; i++ {
			worker := &parallelWorker{id: i}
			go worker.run(ctx, workCh, resultsCh)
		}

		// Run experiments by sending work to workers
		for _, e := range c.Experiments {
			workCh <- &parallelWork{
				experiment: e,
				comp:       c,
				runNumber:  run,
				rConfig:    rConfig,
				writer:     writer.Newline(),
			}
		}
		close(workCh)

		// Gather results
		results = make(map[string]*ExperimentResult)
	Gather:
		for range c.Experiments {
			select {
			case <-ctx.Done():
				break Gather
			case result := <-resultsCh:
				results[result.experimentName] = result.result
			}
		}
		writer.Stop()
		if len(results) != len(c.Experiments) {
			return results
		}

		analyzerNames := make([]string, 0, len(c.Analyzers))
		for name := range c.Analyzers {
			analyzerNames = append(analyzerNames, name)
		}
		names, datasets := gatherDatasets(results, analyzerNames)
		for name, cmp := range c.Comparators {
			select {
			case <-ctx.Done():
				return results
			default:
			}
			cmp.NewComparator(run).Compare(names, datasets[name])
		}
	}
	return results
}
