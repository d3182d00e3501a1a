package policies

import (
	"math"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/knight-rl/core"
)

// SoftMaxNegFreqPolicy is a coverage seeking Q-learner. Every transition is
// rewarded with minus the number of times its target state was reached, so
// rarely seen states look best. Actions are sampled by a softmax over the Q
// values with the given temperature.
type SoftMaxNegFreqPolicy struct {
	QTable      map[string]map[string]float64
	Freq        map[string]int
	Alpha       float64
	Gamma       float64
	Temperature float64

	seed uint64
	rand erand.Source
}

var _ core.Policy = &SoftMaxNegFreqPolicy{}

// NewSoftMaxNegFreqPolicy creates the policy, a zero seed seeds from the clock
func NewSoftMaxNegFreqPolicy(alpha, gamma, temperature float64, seed uint64) *SoftMaxNegFreqPolicy {
	return &SoftMaxNegFreqPolicy{
		QTable:      make(map[string]map[string]float64),
		Freq:        make(map[string]int),
		Alpha:       alpha,
		Gamma:       gamma,
		Temperature: temperature,
		seed:        seed,
		rand:        newSource(seed),
	}
}

func (s *SoftMaxNegFreqPolicy) Reset() {
	s.QTable = make(map[string]map[string]float64)
	s.Freq = make(map[string]int)
	s.rand = newSource(s.seed)
}

func (s *SoftMaxNegFreqPolicy) ResetEpisode(_ *core.EpisodeContext) {}

func (s *SoftMaxNegFreqPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (s *SoftMaxNegFreqPolicy) row(stateHash string) map[string]float64 {
	if _, ok := s.QTable[stateHash]; !ok {
		s.QTable[stateHash] = make(map[string]float64)
	}
	return s.QTable[stateHash]
}

// Weights are the softmax probabilities of the actions from state
func (s *SoftMaxNegFreqPolicy) Weights(state core.State, actions []core.Action) []float64 {
	row := s.row(state.Hash())
	vals := make([]float64, len(actions))
	largest := math.Inf(-1)
	for i, a := range actions {
		vals[i] = row[a.Hash()]
		if vals[i] > largest {
			largest = vals[i]
		}
	}

	temp := s.Temperature
	if temp <= 0 {
		temp = 1
	}
	sum := float64(0)
	for i := range vals {
		// shift by the largest value to keep exp in range
		vals[i] = math.Exp((vals[i] - largest) / temp)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] = vals[i] / sum
	}
	return vals
}

func (s *SoftMaxNegFreqPolicy) PickAction(_ *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	i, ok := sampleuv.NewWeighted(s.Weights(state, actions), s.rand).Take()
	if !ok {
		return nil
	}
	return actions[i]
}

func (s *SoftMaxNegFreqPolicy) UpdateStep(_ *core.StepContext, state core.State, action core.Action, nextState core.State) {
	nextStateHash := nextState.Hash()
	row := s.row(state.Hash())
	curVal := row[action.Hash()]

	max := float64(0)
	if next, ok := s.QTable[nextStateHash]; ok && len(next) > 0 {
		max = math.Inf(-1)
		for _, val := range next {
			if val > max {
				max = val
			}
		}
	}

	s.Freq[nextStateHash]++
	reward := -float64(s.Freq[nextStateHash])

	row[action.Hash()] = (1-s.Alpha)*curVal + s.Alpha*(reward+s.Gamma*max)
}

type SoftMaxNegFreqPolicyConstructor struct {
	alpha float64
	gamma float64
	temp  float64
	seed  uint64
}

var _ core.PolicyConstructor = &SoftMaxNegFreqPolicyConstructor{}

func NewSoftMaxNegFreqPolicyConstructor(alpha, gamma, temp float64, seed uint64) *SoftMaxNegFreqPolicyConstructor {
	return &SoftMaxNegFreqPolicyConstructor{
		alpha: alpha,
		gamma: gamma,
		temp:  temp,
		seed:  seed,
	}
}

func (s *SoftMaxNegFreqPolicyConstructor) NewPolicy() core.Policy {
	return NewSoftMaxNegFreqPolicy(s.alpha, s.gamma, s.temp, s.seed)
}
