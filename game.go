package main

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// Claim records a word found by a player.
type Claim struct {
	Word      string    `json:"word"`
	Pseudo    string    `json:"pseudo"`
	Start     Position  `json:"start"`
	End       Position  `json:"end"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// GameSession is a collaborative hunt for the words of one puzzle.
type GameSession struct {
	ID        string             `json:"id"`
	PuzzleID  string             `json:"puzzle_id"`
	Players   map[string]*Player `json:"players"`
	Claims    map[string]*Claim  `json:"claims"` // by word
	CreatedAt time.Time          `json:"created_at"`

	grid     *Grid
	words    map[string]bool // placed words only
	unplaced []string
	mu       sync.Mutex
}

// Progress is the number of claimed words out of the words placed in the grid.
type Progress struct {
	Found int `json:"found"`
	Total int `json:"total"`
}

// Done reports whether every word has been claimed.
func (p Progress) Done() bool { return p.Total > 0 && p.Found == p.Total }

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

// newGameSession builds a session from a puzzle and its solution. Words the
// solver could not place cannot be claimed, so they are kept out of the
// progress total and listed as unplaced.
func newGameSession(id string, p *Puzzle, g *Grid, solution []Match) *GameSession {
	words := make(map[string]bool, len(solution))
	var unplaced []string
	for _, m := range solution {
		if m.Found {
			words[m.Word] = true
		} else if !slices.Contains(unplaced, m.Word) {
			unplaced = append(unplaced, m.Word)
		}
	}
	return &GameSession{
		ID:        id,
		PuzzleID:  p.ID,
		Players:   make(map[string]*Player),
		Claims:    make(map[string]*Claim),
		CreatedAt: time.Now(),
		grid:      g,
		words:     words,
		unplaced:  unplaced,
	}
}

// AddPlayer adds a player to the session and returns the player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.Players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.Players[pseudo] = p
	return p
}

// RemovePlayer removes a player from the session. Their claims stay.
func (g *GameSession) RemovePlayer(pseudo string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Players, pseudo)
}

// Claim checks the line from start to end against the puzzle's words,
// read either way, and records it for pseudo. The line must be straight,
// spell an unclaimed word, and lie inside the grid.
func (g *GameSession) Claim(pseudo string, start, end Position) (*Claim, error) {
	spelled, err := Spell(g.grid, start, end)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	word := spelled
	if !g.words[word] {
		word = reverse(spelled)
		if !g.words[word] {
			return nil, fmt.Errorf("%w: %q", ErrNoSuchWord, spelled)
		}
	}
	if prev, ok := g.Claims[word]; ok {
		return nil, fmt.Errorf("%w: %q by %s", ErrAlreadyClaimed, word, prev.Pseudo)
	}

	c := &Claim{
		Word:      word,
		Pseudo:    pseudo,
		Start:     start,
		End:       end,
		ClaimedAt: time.Now(),
	}
	g.Claims[word] = c
	return c, nil
}

// Unplaced returns the puzzle words that appear nowhere in the grid.
func (g *GameSession) Unplaced() []string {
	return slices.Clone(g.unplaced)
}

// Progress returns how many placed words have been claimed.
func (g *GameSession) Progress() Progress {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Progress{Found: len(g.Claims), Total: len(g.words)}
}

// GetClaims returns a copy of the current claims.
func (g *GameSession) GetClaims() map[string]Claim {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make(map[string]Claim, len(g.Claims))
	for w, c := range g.Claims {
		cp[w] = *c
	}
	return cp
}

// GetPlayers returns a copy of the connected players.
func (g *GameSession) GetPlayers() map[string]Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make(map[string]Player, len(g.Players))
	for p, pl := range g.Players {
		cp[p] = *pl
	}
	return cp
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
