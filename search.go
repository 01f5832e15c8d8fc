package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Match is the outcome of searching for one word. When Found is false the
// coordinates are meaningless and omitted from JSON.
type Match struct {
	Word      string     `json:"word"`
	Found     bool       `json:"found"`
	Start     *Position  `json:"start,omitempty"`
	End       *Position  `json:"end,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
}

// Find locates the first placement of word in g. Start cells are visited in
// row-major order and, for each, directions in the order of Directions; the
// first pair that spells the word wins. A missing word is reported with
// Found=false and a nil error.
func Find(g *Grid, word string) (Match, error) {
	if err := g.validate(); err != nil {
		return Match{}, err
	}
	w := []rune(word)
	if len(w) == 0 {
		return Match{}, fmt.Errorf("%w: empty word", ErrInvalidInput)
	}
	return find(g, word, w), nil
}

func find(g *Grid, word string, w []rune) Match {
	for r := range g.rows {
		for c := range g.cols {
			if g.cells[r][c] != w[0] {
				continue
			}
			start := Position{Row: r, Col: c}
			for _, d := range Directions {
				if probe(g, start, d, w) {
					end := start.Step(d, len(w)-1)
					return Match{Word: word, Found: true, Start: &start, End: &end, Direction: &d}
				}
			}
		}
	}
	return Match{Word: word}
}

// probe reports whether w is spelled from start along d. The far end is
// bounds-checked first, so no cell outside the grid is ever read.
func probe(g *Grid, start Position, d Direction, w []rune) bool {
	if !g.InBounds(start.Step(d, len(w)-1)) {
		return false
	}
	for k, ch := range w {
		p := start.Step(d, k)
		if !g.InBounds(p) || g.cells[p.Row][p.Col] != ch {
			return false
		}
	}
	return true
}

// Solve runs Find for every word and returns the matches in input order.
// All words are validated before any search starts, so an invalid word
// yields an error and no results.
func Solve(g *Grid, words []string) ([]Match, error) {
	runes, err := prepare(g, words)
	if err != nil {
		return nil, err
	}
	out := make([]Match, len(words))
	for i, word := range words {
		out[i] = find(g, word, runes[i])
	}
	return out, nil
}

// SolveConcurrent is Solve with words searched by up to workers goroutines.
// The grid is never written, so workers share it without locking. Results
// are identical to Solve.
func SolveConcurrent(ctx context.Context, g *Grid, words []string, workers int) ([]Match, error) {
	runes, err := prepare(g, words)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]Match, len(words))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, word := range words {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = find(g, word, runes[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func prepare(g *Grid, words []string) ([][]rune, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	runes := make([][]rune, len(words))
	for i, word := range words {
		runes[i] = []rune(word)
		if len(runes[i]) == 0 {
			return nil, fmt.Errorf("%w: word %d is empty", ErrInvalidInput, i)
		}
	}
	return runes, nil
}

// DirectionBetween returns the direction leading from a to b and the number
// of steps it takes. a and b must share a row, column or diagonal; a == b
// yields Right and zero steps.
func DirectionBetween(a, b Position) (Direction, int, error) {
	dr, dc := b.Row-a.Row, b.Col-a.Col
	if dr == 0 && dc == 0 {
		return Right, 0, nil
	}
	if dr != 0 && dc != 0 && abs(dr) != abs(dc) {
		return Direction{}, 0, fmt.Errorf("%w: %v to %v", ErrNotStraight, a, b)
	}
	return Direction{DRow: sign(dr), DCol: sign(dc)}, max(abs(dr), abs(dc)), nil
}

// Spell reads the letters on the straight line from start to end inclusive.
func Spell(g *Grid, start, end Position) (string, error) {
	if err := g.validate(); err != nil {
		return "", err
	}
	if !g.InBounds(start) || !g.InBounds(end) {
		return "", fmt.Errorf("%w: %v to %v is outside a %dx%d grid", ErrInvalidInput, start, end, g.rows, g.cols)
	}
	d, n, err := DirectionBetween(start, end)
	if err != nil {
		return "", err
	}
	out := make([]rune, 0, n+1)
	for k := 0; k <= n; k++ {
		p := start.Step(d, k)
		out = append(out, g.cells[p.Row][p.Col])
	}
	return string(out), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
