package policies

import (
	"errors"

	"github.com/zeu5/knight-rl/core"
)

var errNoEdge = errors.New("no such edge")

type fakeAction struct {
	name string
	rank float64
}

func (a fakeAction) Hash() string   { return a.name }
func (a fakeAction) Rank() float64  { return a.rank }
func (a fakeAction) String() string { return a.name }

// fakeState is a node of a small hand built graph
type fakeState struct {
	key     string
	edges   map[string]*fakeState
	order   []core.Action
	success bool
}

func node(key string) *fakeState {
	return &fakeState{key: key, edges: make(map[string]*fakeState)}
}

func (s *fakeState) link(a fakeAction, to *fakeState) *fakeState {
	s.edges[a.name] = to
	s.order = append(s.order, a)
	return s
}

func (s *fakeState) Hash() string           { return s.key }
func (s *fakeState) Actions() []core.Action { return s.order }
func (s *fakeState) Terminal() bool         { return len(s.edges) == 0 }
func (s *fakeState) Success() bool          { return s.success }

func (s *fakeState) After(a core.Action) (core.State, error) {
	next, ok := s.edges[a.Hash()]
	if !ok {
		return nil, errNoEdge
	}
	return next, nil
}

// opaqueState cannot look ahead
type opaqueState struct{}

func (opaqueState) Hash() string           { return "opaque" }
func (opaqueState) Actions() []core.Action { return nil }
func (opaqueState) Terminal() bool         { return false }
