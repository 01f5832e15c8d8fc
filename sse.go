package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// Event types pushed to game subscribers.
const (
	eventGameState     = "game_state"
	eventPlayerJoined  = "player_joined"
	eventPlayerLeft    = "player_left"
	eventWordClaimed   = "word_claimed"
	eventGameCompleted = "game_completed"
)

// Event is one SSE message. Fields are flattened next to "type".
type Event map[string]any

func newEvent(typ string, kv ...any) Event {
	e := Event{"type": typ}
	for i := 0; i+1 < len(kv); i += 2 {
		e[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return e
}

// subscriber is one open event stream on a game.
type subscriber struct {
	gameID string
	ch     chan []byte
}

// Broadcaster fans game events out to the streams watching each game.
type Broadcaster struct {
	mu    sync.RWMutex
	games map[string]map[*subscriber]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{games: make(map[string]map[*subscriber]struct{})}
}

// Subscribe opens a buffered feed of gameID's events.
func (b *Broadcaster) Subscribe(gameID string) *subscriber {
	sub := &subscriber{gameID: gameID, ch: make(chan []byte, sseChannelBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.games[gameID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		b.games[gameID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe closes sub's feed. Calling it twice is harmless.
func (b *Broadcaster) Unsubscribe(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.games[sub.gameID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.games, sub.gameID)
	}
}

// Subscribers returns how many streams are watching gameID.
func (b *Broadcaster) Subscribers(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.games[gameID])
}

// Publish encodes evt and queues it for every subscriber of gameID. A
// subscriber whose buffer is full misses the event.
func (b *Broadcaster) Publish(gameID string, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %v event: %w", evt["type"], err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.games[gameID] {
		select {
		case sub.ch <- data:
		default:
		}
	}
	return nil
}

// Stream serves gameID's events as text/event-stream until the request
// ends. snapshot is called once subscribed and its event is sent first, so
// nothing published in between is lost. onLeave runs after unsubscribing.
func (b *Broadcaster) Stream(w http.ResponseWriter, r *http.Request, gameID string, snapshot func() Event, onLeave func()) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return fmt.Errorf("streaming unsupported by %T", w)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := b.Subscribe(gameID)
	defer func() {
		b.Unsubscribe(sub)
		if onLeave != nil {
			onLeave()
		}
	}()

	if snapshot != nil {
		data, err := json.Marshal(snapshot())
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case data, ok := <-sub.ch:
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
