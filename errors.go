package main

import "errors"

// Sentinel errors for error classification.
var (
	// ErrInvalidInput indicates a malformed grid, puzzle text or word.
	// A word that simply is not in the grid is not an error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPuzzleNotFound indicates an unknown puzzle ID.
	ErrPuzzleNotFound = errors.New("puzzle not found")

	// ErrNotStraight indicates two cells that do not share a row, column
	// or diagonal.
	ErrNotStraight = errors.New("cells are not on a straight line")

	// ErrNoSuchWord indicates a claimed line that spells none of the
	// puzzle's words.
	ErrNoSuchWord = errors.New("line does not spell a puzzle word")

	// ErrAlreadyClaimed indicates a word another player found first.
	ErrAlreadyClaimed = errors.New("word already claimed")
)
