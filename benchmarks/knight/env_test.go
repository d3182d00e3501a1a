package knight

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeu5/knight-rl/benchmarks/common"
	"github.com/zeu5/knight-rl/core"
	"github.com/zeu5/knight-rl/policies"
)

type stringAction string

func (s stringAction) Hash() string { return string(s) }

func TestEnvironmentResetAndStep(t *testing.T) {
	env, err := NewEnvironment(3, 4, Coord{})
	require.NoError(t, err)

	state, err := env.Reset()
	require.NoError(t, err)
	assert.Equal(t, "200000000000", state.Hash())
	assert.Len(t, state.Actions(), 2)

	next, err := env.Step(SSE, nil)
	require.NoError(t, err)
	assert.Equal(t, "100000000200", next.Hash())
	// handed out states do not follow the live board
	assert.Equal(t, "200000000000", state.Hash())

	_, err = env.Step(stringAction("jump"), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.Step(SSE, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	state, err = env.Reset()
	require.NoError(t, err)
	assert.Equal(t, "200000000000", state.Hash())
}

func TestEnvironmentConstructor(t *testing.T) {
	c := &EnvironmentConstructor{Rows: 2, Cols: 2, Start: Coord{Row: 2}}
	assert.ErrorIs(t, c.Validate(), ErrConfiguration)
	assert.Panics(t, func() { c.NewEnvironment(0) })

	c.Start = Coord{Row: 1, Col: 1}
	require.NoError(t, c.Validate())
	assert.NotNil(t, c.NewEnvironment(0))
}

func TestComparisonCountsSuccesses(t *testing.T) {
	env, err := NewEnvironment(3, 4, Coord{})
	require.NoError(t, err)

	cmp := core.NewComparison()
	cmp.AddExperiment(&core.Experiment{
		Name:        "TDValue",
		Environment: env,
		Policy:      policies.NewTDValuePolicy(nil, 0.1, 7),
	})

	results := cmp.Run(context.Background(), 1, &core.RunConfig{
		Episodes:       300,
		EpisodeTimeout: 5 * time.Second,
	})
	require.Contains(t, results, "TDValue")
	r := results["TDValue"]
	assert.False(t, r.IsError())
	assert.Equal(t, 300, r.TotalEpisodes)
	assert.Equal(t, 300, r.CompletedEpisodes)
	assert.Positive(t, r.SuccessEpisodes)
	assert.Zero(t, r.ErrorEpisodes)
}

func TestHorizonCutsEpisodes(t *testing.T) {
	env, err := NewEnvironment(5, 5, Coord{})
	require.NoError(t, err)

	cmp := core.NewComparison()
	cmp.AddExperiment(&core.Experiment{
		Name:        "Random",
		Environment: env,
		Policy:      policies.NewRandomPolicy(3),
	})
	results := cmp.Run(context.Background(), 1, &core.RunConfig{Episodes: 10, Horizon: 2})

	r := results["Random"]
	assert.Equal(t, 10, r.CompletedEpisodes)
	assert.Equal(t, 20, r.TotalTimeSteps)
	assert.Zero(t, r.SuccessEpisodes)
}

func TestPrepareComparison(t *testing.T) {
	flags := common.DefaultFlags()
	flags.Rows = 3
	flags.Cols = 4
	flags.Episodes = 50
	flags.Seed = 5
	flags.SavePath = t.TempDir()

	cmp, err := PrepareComparison(flags)
	require.NoError(t, err)
	require.Len(t, cmp.Experiments, 3)

	results := cmp.Run(context.Background(), 1, RunConfigFromFlags(flags), 2)
	require.Len(t, results, 3)
	for name, r := range results {
		assert.False(t, r.IsError(), name)
		assert.Equal(t, 50, r.TotalEpisodes, name)
	}

	_, err = os.Stat(filepath.Join(flags.SavePath, "0", "coverage.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(flags.SavePath, "0", "coverage.html"))
	assert.NoError(t, err)
}

func TestPrepareComparisonRejectsBadBoard(t *testing.T) {
	flags := common.DefaultFlags()
	flags.StartRow = flags.Rows

	_, err := PrepareComparison(flags)
	assert.ErrorIs(t, err, ErrConfiguration)
}
