package knight

import (
	"github.com/zeu5/knight-rl/analysis"
	"github.com/zeu5/knight-rl/benchmarks/common"
	"github.com/zeu5/knight-rl/core"
	"github.com/zeu5/knight-rl/policies"
)

// LearnerConfigFromFlags builds the learner configuration of a command line run
func LearnerConfigFromFlags(flags *common.Flags) LearnerConfig {
	return LearnerConfig{
		Rows:                flags.Rows,
		Cols:                flags.Cols,
		Start:               Coord{Row: flags.StartRow, Col: flags.StartCol},
		Alpha:               flags.Alpha,
		Seed:                flags.Seed,
		MaterializeDefaults: flags.MaterializeDefaults,
	}
}

func RunConfigFromFlags(flags *common.Flags) *core.RunConfig {
	return &core.RunConfig{
		Episodes:                     flags.Episodes,
		Horizon:                      flags.Horizon,
		ThresholdConsecutiveErrors:   flags.MaxConsecutiveErrors,
		ThresholdConsecutiveTimeouts: flags.MaxConsecutiveTimeouts,
		EpisodeTimeout:               flags.EpisodeTimeout,
	}
}

// PrepareComparison sets up the value learner against a uniformly random
// walker and a visit count driven Q-learner on the configured board.
func PrepareComparison(flags *common.Flags) (*core.ParallelComparison, error) {
	envConstructor := &EnvironmentConstructor{
		Rows:  flags.Rows,
		Cols:  flags.Cols,
		Start: Coord{Row: flags.StartRow, Col: flags.StartCol},
	}
	if err := envConstructor.Validate(); err != nil {
		return nil, err
	}

	cmp := core.NewParallelComparison()

	if flags.Debug {
		cmp.AddAnalysis("Debug", analysis.NewPrintDebugAnalyzerConstructor(flags.SavePath, flags.Episodes-10), analysis.NewNoOpComparatorConstructor())
	}
	cmp.AddAnalysis("Tours", analysis.NewTourAnalyzerConstructor(flags.SavePath), analysis.NewNoOpComparatorConstructor())
	cmp.AddAnalysis("Errors", analysis.NewErrorAnalyzerConstructor(flags.SavePath), analysis.NewNoOpComparatorConstructor())
	cmp.AddAnalysis("Coverage", analysis.NewCoverageAnalyzerConstructor(), analysis.NewCoverageComparatorConstructor(flags.SavePath))

	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "Random",
		Environment: envConstructor,
		Policy:      &policies.RandomPolicyConstructor{Seed: int64(flags.Seed)},
	})
	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "NegRLVisitFreq",
		Environment: envConstructor,
		Policy:      policies.NewSoftMaxNegFreqPolicyConstructor(0.3, 0.7, 1, flags.Seed),
	})
	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "TDValue",
		Environment: envConstructor,
		Policy:      policies.NewTDValuePolicyConstructor(flags.Alpha, flags.Seed, flags.MaterializeDefaults),
	})

	return cmp, nil
}
