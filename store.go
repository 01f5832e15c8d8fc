package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Store holds all puzzles, their solutions and game sessions in memory.
type Store struct {
	mu        sync.RWMutex
	puzzles   map[string]*Puzzle
	grids     map[string]*Grid
	solutions map[string][]Match
	games     map[string]*GameSession
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		puzzles:   make(map[string]*Puzzle),
		grids:     make(map[string]*Grid),
		solutions: make(map[string][]Match),
		games:     make(map[string]*GameSession),
	}
}

// SavePuzzle validates a puzzle, assigns it an ID and stores it.
func (s *Store) SavePuzzle(p *Puzzle) (*Puzzle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := p.Grid()
	if err != nil {
		return nil, err
	}
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.CreatedAt = time.Now()

	s.mu.Lock()
	s.puzzles[p.ID] = p
	s.grids[p.ID] = g
	s.mu.Unlock()

	return p, nil
}

// GetPuzzle returns a puzzle by ID, or nil if not found.
func (s *Store) GetPuzzle(id string) *Puzzle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puzzles[id]
}

// ListPuzzles returns all puzzles, most recent first.
func (s *Store) ListPuzzles() []*Puzzle {
	s.mu.RLock()
	list := make([]*Puzzle, 0, len(s.puzzles))
	for _, p := range s.puzzles {
		list = append(list, p)
	}
	s.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Puzzle) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return list
}

// Solution returns the matches for every word of a puzzle. The first call
// runs solve; later calls return the cached result.
func (s *Store) Solution(id string, solve func(*Grid, []string) ([]Match, error)) ([]Match, error) {
	s.mu.RLock()
	cached, ok := s.solutions[id]
	p, g := s.puzzles[id], s.grids[id]
	s.mu.RUnlock()

	if ok {
		return cached, nil
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPuzzleNotFound, id)
	}

	matches, err := solve(g, p.Words)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.solutions[id] = matches
	s.mu.Unlock()
	return matches, nil
}

// CreateGame creates a new game session for a given puzzle, solving the
// puzzle first if no solution is cached yet.
// Returns an error if the puzzle does not exist.
func (s *Store) CreateGame(puzzleID string) (*GameSession, error) {
	solution, err := s.Solution(puzzleID, Solve)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	p, g := s.puzzles[puzzleID], s.grids[puzzleID]
	s.mu.RUnlock()

	id, err := generateID()
	if err != nil {
		return nil, err
	}
	game := newGameSession(id, p, g, solution)

	s.mu.Lock()
	s.games[game.ID] = game
	s.mu.Unlock()

	return game, nil
}

// GetGame returns a game session by ID, or nil if not found.
func (s *Store) GetGame(id string) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

// ListGames returns all game sessions.
func (s *Store) ListGames() []*GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*GameSession, 0, len(s.games))
	for _, g := range s.games {
		list = append(list, g)
	}
	return list
}

func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
