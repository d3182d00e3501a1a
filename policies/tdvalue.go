package policies

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/zeu5/knight-rl/core"
)

var (
	ErrNoActions      = errors.New("no actions to choose from")
	ErrNotASuccessor  = errors.New("state cannot look ahead")
	ErrUnknownOutcome = errors.New("terminal state has no outcome")
)

// Ranked actions carry a fixed tie-break key. Candidates are tried in
// increasing rank.
type Ranked interface {
	Rank() float64
}

// TDValuePolicy learns state values from self play. A move is sampled with
// probability proportional to the value of the state it leads to, and the
// value of the state it was taken from is backed up only when the sampled
// move was as good as the best one.
type TDValuePolicy struct {
	table *ValueTable
	alpha float64

	seed uint64
	rand erand.Source

	// best move of the last PickAction, consumed by UpdateStep
	pendingBest core.Action
	newTable    func() *ValueTable
}

var _ core.Policy = &TDValuePolicy{}

// NewTDValuePolicy creates the policy over table with learning rate alpha. A
// zero seed seeds the random source from the clock.
func NewTDValuePolicy(table *ValueTable, alpha float64, seed uint64) *TDValuePolicy {
	if table == nil {
		table = NewValueTable()
	}
	return &TDValuePolicy{
		table:    table,
		alpha:    alpha,
		seed:     seed,
		rand:     newSource(seed),
		newTable: func() *ValueTable { return NewValueTable() },
	}
}

func newSource(seed uint64) erand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return erand.NewSource(seed)
}

func (p *TDValuePolicy) Table() *ValueTable {
	return p.table
}

func (p *TDValuePolicy) Alpha() float64 {
	return p.alpha
}

// Order returns the actions sorted by rank. Unranked actions keep their
// relative order after the ranked ones.
func (p *TDValuePolicy) Order(actions []core.Action) []core.Action {
	out := make([]core.Action, len(actions))
	copy(out, actions)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := out[i].(Ranked)
		rj, jok := out[j].(Ranked)
		switch {
		case iok && jok:
			return ri.Rank() < rj.Rank()
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

func asSuccessor(state core.State) (Successor, error) {
	s, ok := state.(Successor)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotASuccessor, state)
	}
	return s, nil
}

// Weights are the lookahead values of the actions, in the given order
func (p *TDValuePolicy) Weights(state core.State, actions []core.Action) ([]float64, error) {
	s, err := asSuccessor(state)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(actions))
	for i, a := range actions {
		w, err := p.table.Lookahead(s, a)
		if err != nil {
			return nil, err
		}
		weights[i] = w
	}
	return weights, nil
}

// Best is the first action with the maximal lookahead value
func (p *TDValuePolicy) Best(state core.State, actions []core.Action) (core.Action, error) {
	weights, err := p.Weights(state, actions)
	if err != nil {
		return nil, err
	}
	return bestOf(actions, weights)
}

func bestOf(actions []core.Action, weights []float64) (core.Action, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	best := 0
	for i := 1; i < len(weights); i++ {
		if weights[i] > weights[best] {
			best = i
		}
	}
	return actions[best], nil
}

// Decide orders the actions and returns the best one together with the one
// to play. When every weight is exactly zero the best action is played,
// otherwise the choice is sampled proportionally to the weights.
func (p *TDValuePolicy) Decide(state core.State, actions []core.Action) (best, chosen core.Action, err error) {
	ordered := p.Order(actions)
	weights, err := p.Weights(state, ordered)
	if err != nil {
		return nil, nil, err
	}
	best, err = bestOf(ordered, weights)
	if err != nil {
		return nil, nil, err
	}

	allZero := true
	for _, w := range weights {
		if w != 0.0 {
			allZero = false
			break
		}
	}
	if allZero {
		return best, best, nil
	}

	sampler := sampleuv.NewWeighted(weights, p.rand)
	i, ok := sampler.Take()
	if !ok {
		return best, best, nil
	}
	return best, ordered[i], nil
}

// Learn applies the update for the transition prev -> next taken with chosen.
// A terminal next is first set to 1 when successful and 0 otherwise. Then,
// if chosen looks exactly as good as best from prev, the value of prev moves
// towards the value of next by alpha.
func (p *TDValuePolicy) Learn(prev core.State, chosen, best core.Action, next core.State) error {
	if next.Terminal() {
		if err := p.Terminate(next); err != nil {
			return err
		}
	}

	s, err := asSuccessor(prev)
	if err != nil {
		return err
	}
	chosenVal, err := p.table.Lookahead(s, chosen)
	if err != nil {
		return err
	}
	bestVal, err := p.table.Lookahead(s, best)
	if err != nil {
		return err
	}
	if chosenVal == bestVal {
		cur := p.table.Value(prev)
		p.table.SetValue(prev, cur+p.alpha*(p.table.Value(next)-cur))
	}
	return nil
}

// Terminate overwrites the value of a terminal state with its outcome
func (p *TDValuePolicy) Terminate(state core.State) error {
	o, ok := state.(core.Outcome)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownOutcome, state)
	}
	if o.Success() {
		p.table.SetValue(state, 1.0)
	} else {
		p.table.SetValue(state, 0.0)
	}
	return nil
}

func (p *TDValuePolicy) PickAction(_ *core.StepContext, state core.State, actions []core.Action) core.Action {
	best, chosen, err := p.Decide(state, actions)
	if err != nil {
		slog.Error("picking action", "state", state.Hash(), "err", err)
		return nil
	}
	p.pendingBest = best
	return chosen
}

func (p *TDValuePolicy) UpdateStep(_ *core.StepContext, state core.State, action core.Action, nextState core.State) {
	best := p.pendingBest
	p.pendingBest = nil
	if best == nil {
		var err error
		if best, err = p.Best(state, p.Order(state.Actions())); err != nil {
			slog.Error("updating step", "state", state.Hash(), "err", err)
			return
		}
	}
	if err := p.Learn(state, action, best, nextState); err != nil {
		slog.Error("updating step", "state", state.Hash(), "err", err)
	}
}

func (p *TDValuePolicy) ResetEpisode(_ *core.EpisodeContext) {
	p.pendingBest = nil
}

func (p *TDValuePolicy) UpdateEpisode(_ *core.EpisodeContext) {}

// Reset forgets everything learnt and restarts the random source
func (p *TDValuePolicy) Reset() {
	p.table = p.newTable()
	p.rand = newSource(p.seed)
	p.pendingBest = nil
}

type TDValuePolicyConstructor struct {
	alpha       float64
	seed        uint64
	materialize bool
}

var _ core.PolicyConstructor = &TDValuePolicyConstructor{}

// NewTDValuePolicyConstructor builds independent policies each owning a fresh table
func NewTDValuePolicyConstructor(alpha float64, seed uint64, materialize bool) *TDValuePolicyConstructor {
	return &TDValuePolicyConstructor{
		alpha:       alpha,
		seed:        seed,
		materialize: materialize,
	}
}

func (c *TDValuePolicyConstructor) NewPolicy() core.Policy {
	var opts []TableOption
	if c.materialize {
		opts = append(opts, WithMaterializedDefaults())
	}
	p := NewTDValuePolicy(NewValueTable(opts...), c.alpha, c.seed)
	p.newTable = func() *ValueTable { return NewValueTable(opts...) }
	return p
}
