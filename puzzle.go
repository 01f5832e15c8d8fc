package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Puzzle is a word search as stored and served: a letter grid plus the
// words hidden in it.
type Puzzle struct {
	ID        string     `json:"id"`
	Rows      int        `json:"rows"`
	Cols      int        `json:"cols"`
	Cells     [][]string `json:"cells"` // one letter per cell [row][col]
	Words     []string   `json:"words"`
	Source    string     `json:"source,omitempty"` // "text", "json" or "scan"
	CreatedAt time.Time  `json:"created_at"`
}

// Grid converts the puzzle's cells into a search grid, checking that the
// declared dimensions agree with the cells and that each cell holds exactly
// one letter.
func (p *Puzzle) Grid() (*Grid, error) {
	if p.Rows < 1 || p.Cols < 1 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, p.Rows, p.Cols)
	}
	if len(p.Cells) != p.Rows {
		return nil, fmt.Errorf("%w: %d rows declared, %d given", ErrInvalidInput, p.Rows, len(p.Cells))
	}
	rows := make([][]rune, len(p.Cells))
	for i, row := range p.Cells {
		if len(row) != p.Cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidInput, i, len(row), p.Cols)
		}
		rows[i] = make([]rune, len(row))
		for j, cell := range row {
			r, err := singleLetter(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j, err)
			}
			rows[i][j] = r
		}
	}
	return NewGrid(rows)
}

// Validate checks the grid and that there is at least one non-empty word.
func (p *Puzzle) Validate() error {
	if _, err := p.Grid(); err != nil {
		return err
	}
	if len(p.Words) == 0 {
		return fmt.Errorf("%w: no words", ErrInvalidInput)
	}
	for i, w := range p.Words {
		if w == "" {
			return fmt.Errorf("%w: word %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// Normalize trims and NFC-normalises cells and words in place and drops
// blank words.
func (p *Puzzle) Normalize() {
	for _, row := range p.Cells {
		for j, cell := range row {
			row[j] = norm.NFC.String(strings.TrimSpace(cell))
		}
	}
	words := p.Words[:0]
	for _, w := range p.Words {
		if w = norm.NFC.String(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	p.Words = words
}

func singleLetter(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: cell %q is not a single character", ErrInvalidInput, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// ParsePuzzle reads the text format:
//
//	5x5
//	H A S D F
//	...
//	HELLO
//	GOOD
//
// The header gives rows then columns. Each grid line holds exactly that many
// whitespace-separated letters, and every following non-blank line is a word.
func ParsePuzzle(r io.Reader) (*Puzzle, error) {
	sc := bufio.NewScanner(norm.NFC.Reader(r))
	line := 0
	next := func() (string, bool) {
		for sc.Scan() {
			line++
			if s := strings.TrimSpace(sc.Text()); s != "" {
				return s, true
			}
		}
		return "", false
	}

	header, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read puzzle: %w", err)
		}
		return nil, fmt.Errorf("%w: missing dimensions header", ErrInvalidInput)
	}
	rows, cols, err := parseDimensions(header)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}

	p := &Puzzle{Rows: rows, Cols: cols, Cells: make([][]string, 0, rows), Source: "text"}
	for len(p.Cells) < rows {
		s, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("read puzzle: %w", err)
			}
			return nil, fmt.Errorf("%w: expected %d grid rows, got %d", ErrInvalidInput, rows, len(p.Cells))
		}
		fields := strings.Fields(s)
		if len(fields) != cols {
			return nil, fmt.Errorf("line %d: %w: %d letters, want %d", line, ErrInvalidInput, len(fields), cols)
		}
		for _, f := range fields {
			if _, err := singleLetter(f); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		p.Cells = append(p.Cells, fields)
	}

	for {
		s, ok := next()
		if !ok {
			break
		}
		p.Words = append(p.Words, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read puzzle: %w", err)
	}
	if len(p.Words) == 0 {
		return nil, fmt.Errorf("%w: no words after the grid", ErrInvalidInput)
	}
	return p, nil
}

func parseDimensions(s string) (int, int, error) {
	r, c, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: header %q is not ROWSxCOLS", ErrInvalidInput, s)
	}
	rows, err := strconv.Atoi(strings.TrimSpace(r))
	if err != nil || rows < 1 {
		return 0, 0, fmt.Errorf("%w: bad row count in %q", ErrInvalidInput, s)
	}
	cols, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil || cols < 1 {
		return 0, 0, fmt.Errorf("%w: bad column count in %q", ErrInvalidInput, s)
	}
	return rows, cols, nil
}

// FormatResults writes one line per match, "WORD r:c r:c", or
// "WORD not found" when the word is absent.
func FormatResults(w io.Writer, results []Match) error {
	bw := bufio.NewWriter(w)
	for _, m := range results {
		if m.Found {
			fmt.Fprintf(bw, "%s %v %v\n", m.Word, *m.Start, *m.End)
		} else {
			fmt.Fprintf(bw, "%s not found\n", m.Word)
		}
	}
	return bw.Flush()
}
