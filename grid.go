package main

import (
	"fmt"
	"strconv"
)

// Position is a cell coordinate, 0-indexed from the top-left corner.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String formats the position as "row:col".
func (p Position) String() string {
	return strconv.Itoa(p.Row) + ":" + strconv.Itoa(p.Col)
}

// Step returns the position reached after k steps along d.
func (p Position) Step(d Direction, k int) Position {
	return Position{Row: p.Row + k*d.DRow, Col: p.Col + k*d.DCol}
}

// Direction is a unit step between neighbouring cells.
type Direction struct {
	DRow int `json:"drow"`
	DCol int `json:"dcol"`
}

var (
	Right     = Direction{0, 1}
	Down      = Direction{1, 0}
	Left      = Direction{0, -1}
	Up        = Direction{-1, 0}
	DownRight = Direction{1, 1}
	DownLeft  = Direction{1, -1}
	UpLeft    = Direction{-1, -1}
	UpRight   = Direction{-1, 1}
)

// Directions lists the eight search directions in probe order.
// Changing the order changes which placement Find reports.
var Directions = [8]Direction{Right, Down, Left, Up, DownRight, DownLeft, UpLeft, UpRight}

var directionNames = map[Direction]string{
	Right:     "right",
	Down:      "down",
	Left:      "left",
	Up:        "up",
	DownRight: "down-right",
	DownLeft:  "down-left",
	UpLeft:    "up-left",
	UpRight:   "up-right",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("(%d,%d)", d.DRow, d.DCol)
}

// MarshalText encodes the direction by name so JSON results read naturally.
func (d Direction) MarshalText() ([]byte, error) {
	if _, ok := directionNames[d]; !ok {
		return nil, fmt.Errorf("unknown direction %v", d)
	}
	return []byte(directionNames[d]), nil
}

// UnmarshalText decodes a direction name produced by MarshalText.
func (d *Direction) UnmarshalText(b []byte) error {
	for dir, name := range directionNames {
		if name == string(b) {
			*d = dir
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", b)
}

// Grid is an immutable rectangle of letters. Build one with NewGrid.
type Grid struct {
	rows  int
	cols  int
	cells [][]rune
}

// NewGrid copies rows into a new Grid. Every row must have the same,
// non-zero length.
func NewGrid(rows [][]rune) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: grid must have at least one row and one column", ErrInvalidInput)
	}
	cols := len(rows[0])
	cells := make([][]rune, len(rows))
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidInput, i, len(row), cols)
		}
		cells[i] = make([]rune, cols)
		copy(cells[i], row)
	}
	return &Grid{rows: len(rows), cols: cols, cells: cells}, nil
}

// NewGridFromStrings builds a grid from one string per row.
func NewGridFromStrings(rows ...string) (*Grid, error) {
	rr := make([][]rune, len(rows))
	for i, r := range rows {
		rr[i] = []rune(r)
	}
	return NewGrid(rr)
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether p addresses a cell of the grid.
func (g *Grid) InBounds(p Position) bool {
	return 0 <= p.Row && p.Row < g.rows && 0 <= p.Col && p.Col < g.cols
}

// At returns the letter at p, or false when p is outside the grid.
func (g *Grid) At(p Position) (rune, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	return g.cells[p.Row][p.Col], true
}

// Strings returns the grid one string per row.
func (g *Grid) Strings() []string {
	out := make([]string, g.rows)
	for i, row := range g.cells {
		out[i] = string(row)
	}
	return out
}

// validate rechecks the construction invariants. A zero Grid, or one
// assembled without NewGrid, fails here instead of panicking mid-search.
func (g *Grid) validate() error {
	if g == nil || g.rows < 1 || g.cols < 1 || len(g.cells) != g.rows {
		return fmt.Errorf("%w: empty or uninitialised grid", ErrInvalidInput)
	}
	for i, row := range g.cells {
		if len(row) != g.cols {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidInput, i, len(row), g.cols)
		}
	}
	return nil
}
