package knight

// Move is one of the eight knight jumps. Rows grow downwards (south) and
// columns grow to the right (east).
type Move uint8

const (
	NNW Move = iota
	NNE
	WNW
	ENE
	WSW
	ESE
	SSW
	SSE
)

// Moves is the full move set in enumeration order
var Moves = [...]Move{NNW, NNE, WNW, ENE, WSW, ESE, SSW, SSE}

var moveOffsets = [...][2]int{
	NNW: {-2, -1},
	NNE: {-2, 1},
	WNW: {-1, -2},
	ENE: {-1, 2},
	WSW: {1, -2},
	ESE: {1, 2},
	SSW: {2, -1},
	SSE: {2, 1},
}

var moveNames = [...]string{
	NNW: "NNW",
	NNE: "NNE",
	WNW: "WNW",
	ENE: "ENE",
	WSW: "WSW",
	ESE: "ESE",
	SSW: "SSW",
	SSE: "SSE",
}

// Offset returns the (row, column) delta of the move
func (m Move) Offset() (int, int) {
	o := moveOffsets[m]
	return o[0], o[1]
}

// Rank is the tie-break key used to order candidate moves: 1.1*dr + dc.
// No two moves share a rank.
func (m Move) Rank() float64 {
	dr, dc := m.Offset()
	return 1.1*float64(dr) + float64(dc)
}

func (m Move) String() string {
	if int(m) >= len(moveNames) {
		return "invalid"
	}
	return moveNames[m]
}

// Hash implements core.Action
func (m Move) Hash() string {
	return m.String()
}

// Valid reports whether m is one of the eight knight moves
func (m Move) Valid() bool {
	return int(m) < len(moveOffsets)
}
