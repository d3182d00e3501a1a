package knight

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"
)

const (
	cellPad    = 1
	colSep     = "|"
	emptyMark  = " "
	visitMark  = "o"
	knightMark = "x"
)

func (b *Board) mark(c Coord) string {
	if !b.Occupied(c) {
		return emptyMark
	}
	if cur, ok := b.Current(); ok && cur == c {
		return knightMark
	}
	return visitMark
}

// String draws the board with 'x' for the knight, 'o' for visited cells
func (b *Board) String() string {
	return b.render(func(_ Coord, s string) string { return s })
}

// Render draws the board like String with the knight in green and visited
// cells in blue.
func (b *Board) Render(au aurora.Aurora) string {
	return b.render(func(c Coord, s string) string {
		switch {
		case !b.Occupied(c):
			return s
		case s == knightMark:
			return au.Green(s).Bold().String()
		default:
			return au.Blue(s).String()
		}
	})
}

func (b *Board) render(paint func(Coord, string) string) string {
	pad := strings.Repeat(" ", cellPad)
	rowSep := "\n" + strings.Repeat("-", 2*b.cols-1+2*cellPad*b.cols) + "\n"

	rows := make([]string, b.rows)
	for i := 0; i < b.rows; i++ {
		cells := make([]string, b.cols)
		for j := 0; j < b.cols; j++ {
			c := Coord{Row: i, Col: j}
			cells[j] = pad + paint(c, b.mark(c)) + pad
		}
		rows[i] = strings.Join(cells, colSep)
	}
	return "\n" + strings.Join(rows, rowSep) + "\n"
}

// Printer writes rendered boards to an output, colored when the output is a terminal
type Printer struct {
	out io.Writer
	au  aurora.Aurora
}

func NewPrinter(out io.Writer) *Printer {
	colors := false
	if f, ok := out.(*os.File); ok {
		colors = isatty.IsTerminal(f.Fd())
	}
	return &Printer{
		out: out,
		au:  aurora.NewAurora(colors),
	}
}

// Print writes the board, it matches the Learner observer signature
func (p *Printer) Print(b *Board) {
	fmt.Fprint(p.out, b.Render(p.au))
}
