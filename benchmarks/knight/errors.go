package knight

import "errors"

var (
	// ErrInvalidState is returned when placing on an occupied or out of bounds
	// cell, or when applying an illegal move.
	ErrInvalidState = errors.New("invalid board state")
	// ErrConfiguration is returned for non-positive dimensions or a start
	// coordinate outside the grid.
	ErrConfiguration = errors.New("invalid board configuration")
	// ErrEpisodeOver is returned when stepping a board with no legal moves
	ErrEpisodeOver = errors.New("episode is over")
)
