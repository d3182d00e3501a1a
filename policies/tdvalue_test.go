package policies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeu5/knight-rl/core"
)

var (
	good = fakeAction{name: "good", rank: 2}
	bad  = fakeAction{name: "bad", rank: 1}
)

// fork builds prev with two moves whose successors are not terminal
func fork() (prev, goodNext, badNext *fakeState) {
	end := node("end")
	goodNext = node("good-next").link(fakeAction{name: "on"}, end)
	badNext = node("bad-next").link(fakeAction{name: "on"}, end)
	prev = node("prev").link(good, goodNext).link(bad, badNext)
	return
}

func TestOrderByRank(t *testing.T) {
	p := NewTDValuePolicy(nil, 0.1, 1)
	actions := []core.Action{
		fakeAction{name: "c", rank: 3.2},
		fakeAction{name: "a", rank: -3.2},
		fakeAction{name: "b", rank: 0.1},
	}

	ordered := p.Order(actions)
	require.Len(t, ordered, 3)
	assert.Equal(t, "a", ordered[0].Hash())
	assert.Equal(t, "b", ordered[1].Hash())
	assert.Equal(t, "c", ordered[2].Hash())
	assert.Equal(t, "c", actions[0].Hash())
}

func TestBackupRule(t *testing.T) {
	prev, goodNext, badNext := fork()
	p := NewTDValuePolicy(nil, 0.1, 1)
	table := p.Table()
	table.SetValue(goodNext, 0.9)
	table.SetValue(badNext, 0.3)

	best, err := p.Best(prev, p.Order(prev.Actions()))
	require.NoError(t, err)
	assert.Equal(t, good, best)

	require.NoError(t, p.Learn(prev, bad, best, badNext))
	assert.False(t, table.Has("prev"))

	require.NoError(t, p.Learn(prev, good, best, goodNext))
	assert.InDelta(t, 0.54, table.Get("prev"), 1e-12)

	// repeated backups keep moving towards the successor
	require.NoError(t, p.Learn(prev, good, best, goodNext))
	assert.InDelta(t, 0.54+0.1*(0.9-0.54), table.Get("prev"), 1e-12)
}

func TestBackupOnEqualValues(t *testing.T) {
	prev, goodNext, badNext := fork()
	p := NewTDValuePolicy(nil, 0.5, 1)
	p.Table().SetValue(goodNext, 0.7)
	p.Table().SetValue(badNext, 0.7)

	// a move as good as the best one counts as the best one
	require.NoError(t, p.Learn(prev, bad, good, badNext))
	assert.InDelta(t, 0.6, p.Table().Get("prev"), 1e-12)
}

func TestTerminalWrite(t *testing.T) {
	only := fakeAction{name: "only"}
	lost := node("lost")
	won := node("won")
	won.success = true

	p := NewTDValuePolicy(nil, 0.1, 1)
	require.NoError(t, p.Learn(node("a").link(only, lost), only, only, lost))
	assert.Equal(t, 0.0, p.Table().Get("lost"))
	assert.InDelta(t, 0.45, p.Table().Get("a"), 1e-12)

	require.NoError(t, p.Learn(node("b").link(only, won), only, only, won))
	assert.Equal(t, 1.0, p.Table().Get("won"))
	assert.InDelta(t, 0.55, p.Table().Get("b"), 1e-12)

	// terminal values are overwritten, not blended
	p.Table().Set("won", 0.2)
	require.NoError(t, p.Learn(node("c").link(only, won), only, only, won))
	assert.Equal(t, 1.0, p.Table().Get("won"))
}

func TestTerminalWriteNeedsOutcome(t *testing.T) {
	p := NewTDValuePolicy(nil, 0.1, 1)
	assert.ErrorIs(t, p.Terminate(opaqueState{}), ErrUnknownOutcome)
}

func TestDecideAllZeroPicksBest(t *testing.T) {
	prev, goodNext, badNext := fork()
	p := NewTDValuePolicy(nil, 0.1, 1)
	p.Table().SetValue(goodNext, 0.0)
	p.Table().SetValue(badNext, 0.0)

	for i := 0; i < 50; i++ {
		best, chosen, err := p.Decide(prev, prev.Actions())
		require.NoError(t, err)
		// lowest rank wins ties
		assert.Equal(t, bad, best)
		assert.Equal(t, bad, chosen)
	}
}

func TestDecideNeverPicksZeroWeight(t *testing.T) {
	prev, goodNext, badNext := fork()
	p := NewTDValuePolicy(nil, 0.1, 1)
	p.Table().SetValue(goodNext, 0.4)
	p.Table().SetValue(badNext, 0.0)

	for i := 0; i < 200; i++ {
		best, chosen, err := p.Decide(prev, prev.Actions())
		require.NoError(t, err)
		assert.Equal(t, good, best)
		assert.Equal(t, good, chosen)
	}
}

func TestDecideSamplesBoth(t *testing.T) {
	prev, _, _ := fork()
	p := NewTDValuePolicy(nil, 0.1, 3)

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		_, chosen, err := p.Decide(prev, prev.Actions())
		require.NoError(t, err)
		counts[chosen.Hash()]++
	}
	assert.Greater(t, counts["good"], 300)
	assert.Greater(t, counts["bad"], 300)
}

func TestDecideSeeded(t *testing.T) {
	prev, _, _ := fork()
	a := NewTDValuePolicy(nil, 0.1, 42)
	b := NewTDValuePolicy(nil, 0.1, 42)
	for i := 0; i < 100; i++ {
		_, ca, err := a.Decide(prev, prev.Actions())
		require.NoError(t, err)
		_, cb, err := b.Decide(prev, prev.Actions())
		require.NoError(t, err)
		require.Equal(t, ca, cb)
	}
}

func TestDecideErrors(t *testing.T) {
	p := NewTDValuePolicy(nil, 0.1, 1)

	_, _, err := p.Decide(node("end"), nil)
	assert.ErrorIs(t, err, ErrNoActions)

	_, _, err = p.Decide(opaqueState{}, []core.Action{good})
	assert.ErrorIs(t, err, ErrNotASuccessor)
}

func TestPolicyInterface(t *testing.T) {
	prev, goodNext, badNext := fork()
	p := NewTDValuePolicy(nil, 0.1, 1)
	p.Table().SetValue(goodNext, 0.9)
	p.Table().SetValue(badNext, 0.0)

	eCtx := core.NewEpisodeContext(context.Background())
	sCtx := &core.StepContext{EpisodeContext: eCtx}
	p.ResetEpisode(eCtx)

	action := p.PickAction(sCtx, prev, prev.Actions())
	require.Equal(t, good, action)
	p.UpdateStep(sCtx, prev, action, goodNext)
	assert.InDelta(t, 0.54, p.Table().Get("prev"), 1e-12)

	assert.Nil(t, p.PickAction(sCtx, opaqueState{}, []core.Action{good}))

	p.Reset()
	assert.Zero(t, p.Table().Size())
}

func TestConstructorBuildsIndependentPolicies(t *testing.T) {
	c := NewTDValuePolicyConstructor(0.1, 1, true)
	a := c.NewPolicy().(*TDValuePolicy)
	b := c.NewPolicy().(*TDValuePolicy)

	a.Table().Set("x", 1)
	assert.False(t, b.Table().Has("x"))

	a.Reset()
	a.Table().Get("y")
	assert.True(t, a.Table().Has("y"))
}

func TestRandomPolicy(t *testing.T) {
	prev, _, _ := fork()
	p := NewRandomPolicy(9)

	assert.Nil(t, p.PickAction(nil, node("end"), nil))

	first := make([]core.Action, 0, 20)
	for i := 0; i < 20; i++ {
		first = append(first, p.PickAction(nil, prev, prev.Actions()))
	}
	p.Reset()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first[i], p.PickAction(nil, prev, prev.Actions()))
	}
}

func TestSoftMaxNegFreqPrefersUnseenStates(t *testing.T) {
	prev, goodNext, _ := fork()
	p := NewSoftMaxNegFreqPolicy(0.5, 0.7, 1, 1)

	weights := p.Weights(prev, prev.Actions())
	assert.InDelta(t, 0.5, weights[0], 1e-12)
	assert.InDelta(t, 0.5, weights[1], 1e-12)

	// reaching goodNext repeatedly makes it less attractive
	for i := 0; i < 3; i++ {
		p.UpdateStep(nil, prev, good, goodNext)
	}
	assert.Equal(t, 3, p.Freq[goodNext.Hash()])
	assert.Less(t, p.QTable["prev"]["good"], 0.0)

	weights = p.Weights(prev, prev.Actions())
	assert.Less(t, weights[0], weights[1])

	counts := make(map[string]int)
	for i := 0; i < 200; i++ {
		counts[p.PickAction(nil, prev, prev.Actions()).Hash()]++
	}
	assert.Greater(t, counts["bad"], counts["good"])

	p.Reset()
	assert.Empty(t, p.QTable)
	assert.Empty(t, p.Freq)
	assert.Nil(t, p.PickAction(nil, node("end"), nil))
}
