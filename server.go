package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"
)

//go:embed frontend
var frontendFS embed.FS

const (
	maxUploadSize = 10 << 20 // 10 MiB
	maxPuzzleSize = 1 << 20
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// scanner extracts a puzzle from a photo. *GeminiClient implements it.
type scanner interface {
	ScanImage(ctx context.Context, imageData []byte, mimeType string) (*Puzzle, error)
}

// Server is the main HTTP server.
type Server struct {
	mux      *http.ServeMux
	store    *Store
	scanner  scanner
	sse      *Broadcaster
	log      *slog.Logger
	workers  int
	uploadRL *rateLimiter
	claimRL  *rateLimiter
}

// NewServer creates a configured HTTP server. sc may be nil, which
// disables photo scanning.
func NewServer(store *Store, sc scanner, cfg *Config, logger *slog.Logger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		store:    store,
		scanner:  sc,
		sse:      NewBroadcaster(),
		log:      logger,
		workers:  cfg.SolveWorkers,
		uploadRL: newRateLimiter(cfg.Limits.UploadsPerMinute, uploadWindow),
		claimRL:  newRateLimiter(cfg.Limits.ClaimsPerSecond, claimWindow),
	}
	s.routes()
	return s
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.uploadRL.stop()
	s.claimRL.stop()
}

func (s *Server) routes() {
	// Puzzle API
	s.mux.HandleFunc("POST /api/puzzles", s.handleCreatePuzzle)
	s.mux.HandleFunc("POST /api/puzzles/scan", s.handleScanPuzzle)
	s.mux.HandleFunc("GET /api/puzzles", s.handleListPuzzles)
	s.mux.HandleFunc("GET /api/puzzles/{id}", s.handleGetPuzzle)
	s.mux.HandleFunc("GET /api/puzzles/{id}/solution", s.handleSolution)
	s.mux.HandleFunc("POST /api/solve", s.handleSolve)

	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	s.mux.HandleFunc("POST /api/games/{id}/claim", s.handleClaim)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /game/{id}", s.handleGamePage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// solveFunc binds the configured worker count and a request context to the
// concurrent solver.
func (s *Server) solveFunc(ctx context.Context) func(*Grid, []string) ([]Match, error) {
	return func(g *Grid, words []string) ([]Match, error) {
		return SolveConcurrent(ctx, g, words, s.workers)
	}
}

// --- Puzzle handlers ---

// POST /api/puzzles: store a puzzle sent as JSON or as puzzle text.
func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(clientIP(r.RemoteAddr)) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPuzzleSize)

	var p *Puzzle
	if isPlainText(r) {
		parsed, err := ParsePuzzle(r.Body)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		p = parsed
	} else {
		var req struct {
			Rows  int        `json:"rows"`
			Cols  int        `json:"cols"`
			Cells [][]string `json:"cells"`
			Words []string   `json:"words"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		p = &Puzzle{Rows: req.Rows, Cols: req.Cols, Cells: req.Cells, Words: req.Words, Source: "json"}
		p.Normalize()
	}

	saved, err := s.store.SavePuzzle(p)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("Puzzle saved.", "puzzle_id", saved.ID, "rows", saved.Rows, "cols", saved.Cols, "words", len(saved.Words), "source", saved.Source)

	writeJSON(w, http.StatusCreated, saved)
}

// POST /api/puzzles/scan: upload a photo, extract the puzzle with Gemini, save it.
func (s *Server) handleScanPuzzle(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(clientIP(r.RemoteAddr)) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	if s.scanner == nil {
		jsonError(w, "Image analysis is not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, "Image too large (max 10 MiB)", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "Field 'image' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMIME[mimeType] {
		jsonError(w, "Accepted formats: JPEG or PNG", http.StatusBadRequest)
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "Could not read the image", http.StatusInternalServerError)
		return
	}

	p, err := s.scanner.ScanImage(r.Context(), imageData, mimeType)
	if err != nil {
		s.log.Error("Puzzle scan failed.", "error", err, "bytes", len(imageData), "mime", mimeType)
		jsonError(w, "Could not analyse the puzzle photo", http.StatusUnprocessableEntity)
		return
	}

	saved, err := s.store.SavePuzzle(p)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.log.Info("Scanned puzzle saved.", "puzzle_id", saved.ID, "rows", saved.Rows, "cols", saved.Cols, "words", len(saved.Words))

	writeJSON(w, http.StatusCreated, saved)
}

// GET /api/puzzles: list all puzzles.
func (s *Server) handleListPuzzles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListPuzzles())
}

// GET /api/puzzles/{id}: get a single puzzle.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "Puzzle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/puzzles/{id}/solution: where every word sits.
func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	matches, err := s.store.Solution(id, s.solveFunc(r.Context()))
	switch {
	case errors.Is(err, ErrPuzzleNotFound):
		jsonError(w, "Puzzle not found", http.StatusNotFound)
		return
	case errors.Is(err, context.Canceled):
		s.log.Debug("Solve abandoned, client went away.", "puzzle_id", id)
		return
	case err != nil:
		s.log.Error("Solve failed.", "puzzle_id", id, "error", err)
		jsonError(w, "Could not solve the puzzle", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := FormatResults(w, matches); err != nil {
			s.log.Warn("Writing solution failed.", "puzzle_id", id, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		PuzzleID string  `json:"puzzle_id"`
		Results  []Match `json:"results"`
	}{id, matches})
}

// POST /api/solve: puzzle text in, result lines out. Nothing is stored.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPuzzleSize)

	p, err := ParsePuzzle(r.Body)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, err := p.Grid()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	matches, err := SolveConcurrent(r.Context(), g, p.Words, s.workers)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Debug("Solved puzzle text.", "rows", p.Rows, "cols", p.Cols, "words", len(p.Words))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := FormatResults(w, matches); err != nil {
		s.log.Warn("Writing results failed.", "error", err)
	}
}

// --- Game handlers ---

// gameView is the JSON shape of a game: a consistent snapshot of the
// session plus its puzzle.
type gameView struct {
	ID       string            `json:"id"`
	PuzzleID string            `json:"puzzle_id"`
	Players  map[string]Player `json:"players"`
	Claims   map[string]Claim  `json:"claims"`
	Progress Progress          `json:"progress"`
	Unplaced []string          `json:"unplaced,omitempty"`
	Watchers int               `json:"watchers"`
	Puzzle   *Puzzle           `json:"puzzle,omitempty"`
}

func (s *Server) viewGame(game *GameSession, withPuzzle bool) gameView {
	v := gameView{
		ID:       game.ID,
		PuzzleID: game.PuzzleID,
		Players:  game.GetPlayers(),
		Claims:   game.GetClaims(),
		Progress: game.Progress(),
		Unplaced: game.Unplaced(),
		Watchers: s.sse.Subscribers(game.ID),
	}
	if withPuzzle {
		v.Puzzle = s.store.GetPuzzle(game.PuzzleID)
	}
	return v
}

// POST /api/games: create a game from a puzzle.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PuzzleID string `json:"puzzle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PuzzleID == "" {
		jsonError(w, "Field 'puzzle_id' is required", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(req.PuzzleID)
	switch {
	case errors.Is(err, ErrPuzzleNotFound):
		jsonError(w, "Puzzle not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("Game creation failed.", "puzzle_id", req.PuzzleID, "error", err)
		jsonError(w, "Could not create the game", http.StatusInternalServerError)
		return
	}
	s.log.Info("Game created.", "game_id", game.ID, "puzzle_id", game.PuzzleID)

	writeJSON(w, http.StatusCreated, s.viewGame(game, false))
}

// GET /api/games/{id}: get current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.viewGame(game, true))
}

// POST /api/games/{id}/join: join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "Field 'pseudo' is required", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Invalid pseudo", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	s.log.Info("Player joined.", "game_id", game.ID, "pseudo", player.Pseudo, "subscribers", s.sse.Subscribers(game.ID))
	s.publish(game.ID, newEvent(eventPlayerJoined, "pseudo", player.Pseudo, "color", player.Color))

	writeJSON(w, http.StatusOK, player)
}

// POST /api/games/{id}/claim: submit a line believed to hold a word.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if !s.claimRL.allow(clientIP(r.RemoteAddr)) {
		jsonError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string   `json:"pseudo"`
		Start  Position `json:"start"`
		End    Position `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Field 'pseudo' is required", http.StatusBadRequest)
		return
	}

	claim, err := game.Claim(pseudo, req.Start, req.End)
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotStraight):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrAlreadyClaimed):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, ErrNoSuchWord):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.log.Error("Claim failed.", "game_id", game.ID, "error", err)
		jsonError(w, "Could not record the claim", http.StatusInternalServerError)
		return
	}

	progress := game.Progress()
	s.log.Info("Word claimed.", "game_id", game.ID, "word", claim.Word, "pseudo", claim.Pseudo, "found", progress.Found, "total", progress.Total)
	s.publish(game.ID, newEvent(eventWordClaimed, "claim", claim, "progress", progress))
	if progress.Done() {
		s.publish(game.ID, newEvent(eventGameCompleted, "progress", progress))
	}

	writeJSON(w, http.StatusCreated, claim)
}

// GET /api/games/{id}/events: SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))

	snapshot := func() Event {
		s.log.Debug("Subscriber connected.", "game_id", game.ID, "pseudo", playerPseudo, "subscribers", s.sse.Subscribers(game.ID))
		v := s.viewGame(game, false)
		return newEvent(eventGameState, "players", v.Players, "claims", v.Claims, "progress", v.Progress, "unplaced", v.Unplaced)
	}
	leave := func() {
		s.log.Debug("Subscriber left.", "game_id", game.ID, "pseudo", playerPseudo, "subscribers", s.sse.Subscribers(game.ID))
		if playerPseudo != "" {
			game.RemovePlayer(playerPseudo)
			s.publish(game.ID, newEvent(eventPlayerLeft, "pseudo", playerPseudo))
		}
	}
	if err := s.sse.Stream(w, r, game.ID, snapshot, leave); err != nil {
		s.log.Error("Event stream failed.", "game_id", game.ID, "error", err)
	}
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "OK\n")
}

// --- Frontend page handlers ---

// GET /game/{id}: serve the game page.
func (s *Server) handleGamePage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/game.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func (s *Server) publish(gameID string, evt Event) {
	if err := s.sse.Publish(gameID, evt); err != nil {
		s.log.Error("Publishing event failed.", "game_id", gameID, "error", err)
	}
}

func isPlainText(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "text/plain"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}
