package knight

import (
	"fmt"

	"github.com/zeu5/knight-rl/core"
)

// Environment plays a knight on a board starting every episode from the
// same cell. States handed out are copies, later moves do not change them.
type Environment struct {
	board *Board
	start Coord
}

var _ core.Environment = &Environment{}

func NewEnvironment(rows, cols int, start Coord) (*Environment, error) {
	board, err := NewBoard(rows, cols)
	if err != nil {
		return nil, err
	}
	if !board.InBounds(start) {
		return nil, fmt.Errorf("%w: start %s outside %dx%d grid", ErrConfiguration, start, rows, cols)
	}
	return &Environment{
		board: board,
		start: start,
	}, nil
}

// Board is the live board, callers must not mutate it
func (e *Environment) Board() *Board {
	return e.board
}

func (e *Environment) Start() Coord {
	return e.start
}

// Reset clears the board and places the knight at the start cell
func (e *Environment) Reset() (core.State, error) {
	e.board.Reset()
	if err := e.board.Place(e.start); err != nil {
		return nil, err
	}
	return e.board.Clone(), nil
}

func (e *Environment) Step(action core.Action, _ *core.StepContext) (core.State, error) {
	m, ok := action.(Move)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a knight move", ErrInvalidState, action)
	}
	if err := e.board.Apply(m); err != nil {
		return nil, err
	}
	return e.board.Clone(), nil
}

type EnvironmentConstructor struct {
	Rows  int
	Cols  int
	Start Coord
}

var _ core.EnvironmentConstructor = &EnvironmentConstructor{}

// NewEnvironment panics on an invalid configuration, validate it with Validate first
func (c *EnvironmentConstructor) NewEnvironment(_ int) core.Environment {
	env, err := NewEnvironment(c.Rows, c.Cols, c.Start)
	if err != nil {
		panic(err)
	}
	return env
}

func (c *EnvironmentConstructor) Validate() error {
	_, err := NewEnvironment(c.Rows, c.Cols, c.Start)
	return err
}
