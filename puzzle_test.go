package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const samplePuzzle = `5x5
H A S D F
G E Y B H
J K L Z X
C V B L N
G O O D O
HELLO
GOOD
BYE
`

func TestParsePuzzle(t *testing.T) {
	p, err := ParsePuzzle(strings.NewReader(samplePuzzle))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := &Puzzle{
		Rows: 5,
		Cols: 5,
		Cells: [][]string{
			{"H", "A", "S", "D", "F"},
			{"G", "E", "Y", "B", "H"},
			{"J", "K", "L", "Z", "X"},
			{"C", "V", "B", "L", "N"},
			{"G", "O", "O", "D", "O"},
		},
		Words:  []string{"HELLO", "GOOD", "BYE"},
		Source: "text",
	}
	if diff := cmp.Diff(want, p, cmpopts.IgnoreFields(Puzzle{}, "CreatedAt")); diff != "" {
		t.Fatalf("ParsePuzzle mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePuzzleRectangularAndLoose(t *testing.T) {
	// Rows first, multi-digit, blank lines and stray spacing tolerated.
	text := "2 X 12\n\nA B C D E F G H I J K L\n  M N O P Q R S T U V W X  \n\n  ABC \n\nXWV\n"
	p, err := ParsePuzzle(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Rows != 2 || p.Cols != 12 {
		t.Fatalf("expected 2x12, got %dx%d", p.Rows, p.Cols)
	}
	if diff := cmp.Diff([]string{"ABC", "XWV"}, p.Words); diff != "" {
		t.Fatalf("words mismatch (-want +got):\n%s", diff)
	}

	g, err := p.Grid()
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	got, err := Solve(g, p.Words)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !got[0].Found || !got[1].Found || *got[1].Direction != Left {
		t.Fatalf("unexpected results: %+v %+v", got[0], got[1])
	}
}

func TestParsePuzzleNormalizesUnicode(t *testing.T) {
	// "E" followed by a combining acute accent becomes one cell.
	text := "1x2\nE\u0301 T\nE\u0301T\n"
	p, err := ParsePuzzle(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Cells[0][0] != "\u00c9" {
		t.Fatalf("expected a precomposed letter, got %q", p.Cells[0][0])
	}
	g, err := p.Grid()
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	m, err := Find(g, p.Words[0])
	if err != nil || !m.Found {
		t.Fatalf("expected %q to be found: %v %+v", p.Words[0], err, m)
	}
}

func TestParsePuzzleErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"bad header", "five by five\nA\nW\n"},
		{"zero rows", "0x3\nW\n"},
		{"missing cols", "3x\nA B C\n"},
		{"short row", "2x2\nA B\nC\nAB\n"},
		{"multi-letter cell", "1x2\nAB C\nW\n"},
		{"missing rows", "3x1\nA\nB\n"},
		{"no words", "1x1\nA\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePuzzle(strings.NewReader(tt.text))
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParsePuzzleErrorHasLine(t *testing.T) {
	_, err := ParsePuzzle(strings.NewReader("2x2\nA B\nC D E\nW\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error mentioning line 3, got %v", err)
	}
}

func TestPuzzleGridValidation(t *testing.T) {
	tests := []struct {
		name string
		p    Puzzle
	}{
		{"zero dims", Puzzle{Rows: 0, Cols: 0}},
		{"row count", Puzzle{Rows: 2, Cols: 1, Cells: [][]string{{"A"}}}},
		{"col count", Puzzle{Rows: 1, Cols: 2, Cells: [][]string{{"A"}}}},
		{"empty cell", Puzzle{Rows: 1, Cols: 1, Cells: [][]string{{""}}}},
		{"wide cell", Puzzle{Rows: 1, Cols: 1, Cells: [][]string{{"AB"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.p.Grid(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	p := Puzzle{Rows: 1, Cols: 1, Cells: [][]string{{"A"}}}
	if err := p.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("no words: expected ErrInvalidInput, got %v", err)
	}
	p.Words = []string{"A", ""}
	if err := p.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty word: expected ErrInvalidInput, got %v", err)
	}
}

func TestPuzzleNormalize(t *testing.T) {
	p := Puzzle{
		Rows:  1,
		Cols:  2,
		Cells: [][]string{{" A ", "É"}},
		Words: []string{" AÉ ", "", "   "},
	}
	p.Normalize()

	if diff := cmp.Diff([][]string{{"A", "É"}}, p.Cells); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"AÉ"}, p.Words); diff != "" {
		t.Fatalf("words mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatResults(t *testing.T) {
	var buf bytes.Buffer
	err := FormatResults(&buf, []Match{
		found("HELLO", 0, 0, 4, 4, DownRight),
		notFound("NOPE"),
		found("BYE", 1, 3, 1, 1, Left),
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "HELLO 0:0 4:4\nNOPE not found\nBYE 1:3 1:1\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}
