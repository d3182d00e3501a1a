package policies

import (
	"math/rand"
	"time"

	"github.com/zeu5/knight-rl/core"
)

// RandomPolicy picks uniformly among the available actions and learns nothing.
// It is the baseline the learnt policies are compared against.
type RandomPolicy struct {
	seed int64
	rand *rand.Rand
}

var _ core.Policy = &RandomPolicy{}

func NewRandomPolicy(seed int64) *RandomPolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPolicy{
		seed: seed,
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomPolicy) Reset() {
	r.rand = rand.New(rand.NewSource(r.seed))
}

func (r *RandomPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (r *RandomPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	i := r.rand.Intn(len(actions))
	return actions[i]
}

func (r *RandomPolicy) UpdateStep(_ *core.StepContext, _ core.State, _ core.Action, _ core.State) {}

func (r *RandomPolicy) ResetEpisode(_ *core.EpisodeContext) {}

type RandomPolicyConstructor struct {
	Seed int64
}

func (r *RandomPolicyConstructor) NewPolicy() core.Policy {
	return NewRandomPolicy(r.Seed)
}
