package knight

import (
	"fmt"

	"github.com/zeu5/knight-rl/policies"
)

// LearnerConfig configures a Learner
type LearnerConfig struct {
	Rows  int
	Cols  int
	Start Coord
	// Alpha is the learning rate of the backup
	Alpha float64
	// Seed of the move sampler, zero seeds from the clock
	Seed uint64
	// MaterializeDefaults stores the default value of every state that is read
	MaterializeDefaults bool
}

func DefaultLearnerConfig(rows, cols int) LearnerConfig {
	return LearnerConfig{
		Rows:  rows,
		Cols:  cols,
		Alpha: 0.1,
	}
}

// Learner plays episodes on its own board and learns a value table from them
type Learner struct {
	env    *Environment
	policy *policies.TDValuePolicy

	observers []func(*Board)
}

type learnerOptions struct {
	observers []func(*Board)
	table     *policies.ValueTable
}

type LearnerOption func(*learnerOptions)

// WithObserver registers fn to receive the board after every reset and step
func WithObserver(fn func(*Board)) LearnerOption {
	return func(o *learnerOptions) {
		o.observers = append(o.observers, fn)
	}
}

// WithTable makes the learner continue from an existing table
func WithTable(table *policies.ValueTable) LearnerOption {
	return func(o *learnerOptions) {
		o.table = table
	}
}

func NewLearner(cfg LearnerConfig, opts ...LearnerOption) (*Learner, error) {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		return nil, fmt.Errorf("%w: learning rate %v outside (0,1]", ErrConfiguration, cfg.Alpha)
	}
	env, err := NewEnvironment(cfg.Rows, cfg.Cols, cfg.Start)
	if err != nil {
		return nil, err
	}
	o := &learnerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	table := o.table
	if table == nil {
		var tableOpts []policies.TableOption
		if cfg.MaterializeDefaults {
			tableOpts = append(tableOpts, policies.WithMaterializedDefaults())
		}
		table = policies.NewValueTable(tableOpts...)
	}
	return &Learner{
		env:       env,
		policy:    policies.NewTDValuePolicy(table, cfg.Alpha, cfg.Seed),
		observers: o.observers,
	}, nil
}

func (l *Learner) Board() *Board {
	return l.env.Board()
}

func (l *Learner) Table() *policies.ValueTable {
	return l.policy.Table()
}

func (l *Learner) Policy() *policies.TDValuePolicy {
	return l.policy
}

func (l *Learner) observe() {
	for _, fn := range l.observers {
		fn(l.env.Board())
	}
}

// Reset clears the board and places the knight at the start cell
func (l *Learner) Reset() error {
	if _, err := l.env.Reset(); err != nil {
		return err
	}
	l.observe()
	return nil
}

// Step plays one move and updates the value table
func (l *Learner) Step() error {
	board := l.env.Board()
	if board.IsTerminal() {
		return ErrEpisodeOver
	}
	prev := board.Clone()
	best, chosen, err := l.policy.Decide(prev, prev.Actions())
	if err != nil {
		return err
	}
	next, err := l.env.Step(chosen, nil)
	if err != nil {
		return err
	}
	if err := l.policy.Learn(prev, chosen, best, next); err != nil {
		return err
	}
	l.observe()
	return nil
}

// Simulate plays a full episode from a fresh board. A start with no legal
// move gets its outcome value written directly.
func (l *Learner) Simulate() error {
	if err := l.Reset(); err != nil {
		return err
	}
	if l.env.Board().IsTerminal() {
		return l.policy.Terminate(l.env.Board().Clone())
	}
	for !l.env.Board().IsTerminal() {
		if err := l.Step(); err != nil {
			return err
		}
	}
	return nil
}
