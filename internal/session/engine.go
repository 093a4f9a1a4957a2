// Per-game executor and command dispatch
//
// Copyright (c) 2026  The weiqi-server contributors
//
// This file is part of weiqi-server.
//
// weiqi-server is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// weiqi-server is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with weiqi-server. If not, see
// <http://www.gnu.org/licenses/>

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/protocol"
	"weiqi-server/internal/store"
)

// aiMoveTimeout bounds how long the engine waits on EnginePool.RequestMove
// for one move before giving up on that turn, so a wedged collaborator
// can't hang its game's executor loop (the request runs off-goroutine,
// but an abandoned request would otherwise never stop retrying).
const aiMoveTimeout = 30 * time.Second

// EnginePool is the minimal contract the session engine needs from an
// AI move-generation collaborator, kept here (rather than importing
// internal/enginepool) to avoid a dependency cycle; internal/enginepool
// implements this interface.
type EnginePool interface {
	RequestMove(ctx context.Context, g *GameState, color boardgame.Color) (x, y int, pass bool, err error)
}

// Config bundles the defaults Engine applies to a createGame call that
// doesn't override them, taken from internal/config.GameConf.
type Config struct {
	BoardSize          int
	ScoringRule        boardgame.RuleSet
	Komi               float64
	TimeControlMinutes int
	ByoYomiPeriods     int
	ByoYomiTimeSeconds int
	TimePerMoveSeconds int
	CommandTimeout     time.Duration
	DisconnectGrace    time.Duration
	SessionTTL         time.Duration
}

// Engine owns the set of locally active per-game executors. It is the
// direct generalization of the teacher's Game.Play-per-goroutine model:
// one goroutine per GameState, serializing every mutation to that
// game's state, as spec §5 requires.
type Engine struct {
	store  store.Store
	pool   EnginePool
	cfg    Config
	log    *slog.Logger

	// sink receives events produced off the request path, when an AI
	// collaborator's move lands with nobody's command waiting on the
	// result. Set once via SetEventSink by the transport layer, since
	// this package cannot import it without a cycle.
	sink func(gameID string, events []Event)

	mu    sync.Mutex
	games map[string]*executor
}

// SetEventSink registers fn as the destination for events generated by
// an AI seat's move, which the engine cannot hand back to a caller the
// way it does for a client-issued command.
func (e *Engine) SetEventSink(fn func(gameID string, events []Event)) {
	e.mu.Lock()
	e.sink = fn
	e.mu.Unlock()
}

// NewEngine constructs an Engine. pool may be nil if no AI collaborator
// is configured.
func NewEngine(st store.Store, pool EnginePool, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: st,
		pool:  pool,
		cfg:   cfg,
		log:   log,
		games: make(map[string]*executor),
	}
}

// request is the unit of work sent to a game's executor goroutine.
type request struct {
	run  func(g *GameState) ([]Event, error)
	done chan result
}

type result struct {
	events []Event
	err    error
}

// executor is a single-writer goroutine owning one GameState, mirroring
// the teacher's per-Game goroutine in Game.Play.
type executor struct {
	id    string
	state *GameState
	cmds  chan *request
	done  chan struct{}

	// aiThinking guards against requesting a second move from the pool
	// for this game while one is already in flight.
	aiThinking int32
}

// acquire finds or creates the local executor for gameID, loading the
// state from the store on first local touch. This is this
// implementation's documented choice for spec §5's "owning instance"
// discipline: a game's executor lives on whichever instance first
// handles a command for it, and sticky routing at the edge is relied on
// to keep the same game's commands landing on the same instance;
// cross-instance correctness for the rare misrouted command falls back
// to read-modify-write against the shared store, serialized by that
// store's own per-key atomicity, rather than a distributed lock.
func (e *Engine) acquire(ctx context.Context, gameID string) (*executor, error) {
	e.mu.Lock()
	if ex, ok := e.games[gameID]; ok {
		e.mu.Unlock()
		return ex, nil
	}
	e.mu.Unlock()

	data, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var g GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("session: decode stored game %s: %w", gameID, err)
	}
	g.HasLastMoveTime = g.LastMoveTimeMillis != 0
	g.LastActivity = time.Now()

	return e.spawn(&g), nil
}

// spawn registers a freshly-built GameState (from createGame, or from a
// store load) under a new executor goroutine.
func (e *Engine) spawn(g *GameState) *executor {
	ex := &executor{
		id:    g.ID,
		state: g,
		cmds:  make(chan *request, 8),
		done:  make(chan struct{}),
	}

	e.mu.Lock()
	e.games[g.ID] = ex
	e.mu.Unlock()

	go e.run(ex)
	return ex
}

func (e *Engine) run(ex *executor) {
	for {
		select {
		case req := <-ex.cmds:
			events, err := req.run(ex.state)
			if err == nil {
				ex.state.LastActivity = time.Now()
				if saveErr := e.persist(context.Background(), ex.state); saveErr != nil {
					e.log.Error("session: failed to persist game", "game", ex.id, "error", saveErr)
					err = &protocol.CommandError{Kind: protocol.KindStoreError, Message: saveErr.Error()}
				} else {
					e.maybeRequestAIMove(ex)
				}
			}
			req.done <- result{events: events, err: err}
		case <-ex.done:
			return
		}
	}
}

// maybeRequestAIMove starts an asynchronous RequestMove against the
// engine pool when the seat whose turn it now is belongs to an AI
// collaborator, picking up again after the request returns by feeding
// the resulting move back through the same dispatch queue every client
// command goes through. That re-entry is what makes an AI-vs-AI game
// keep moving on its own, one turn triggering the next.
//
// Only Board, KoPosition and HasKo are read out of the snapshot handed
// to the pool: ApplyMove never mutates a Board in place, so sharing the
// one the executor is holding at this instant across goroutines is
// safe, but other GameState fields (History, Players, CapturedStones)
// are mutated in place by later commands and must not be read this way.
func (e *Engine) maybeRequestAIMove(ex *executor) {
	if e.pool == nil || ex.state.Status != Playing {
		return
	}
	mover := ex.state.PlayerByColor(ex.state.CurrentTurn)
	if mover == nil || !mover.IsAI {
		return
	}
	if !atomic.CompareAndSwapInt32(&ex.aiThinking, 0, 1) {
		return
	}

	snapshot := &GameState{Board: ex.state.Board, KoPosition: ex.state.KoPosition, HasKo: ex.state.HasKo}
	color := ex.state.CurrentTurn
	playerID := mover.ID
	gameID := ex.id

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), aiMoveTimeout)
		x, y, pass, err := e.pool.RequestMove(ctx, snapshot, color)
		cancel()
		// Reset before dispatching the resulting move: that dispatch runs
		// on this same executor and, if the seat after it is also AI,
		// recurses back into maybeRequestAIMove before this goroutine
		// exits. The flag only needs to cover the RequestMove round-trip.
		atomic.StoreInt32(&ex.aiThinking, 0)
		if err != nil {
			e.log.Warn("session: AI move request failed", "game", gameID, "color", color.String(), "error", err)
			return
		}

		var events []Event
		if pass {
			events, err = e.PassTurn(context.Background(), protocol.PassTurnPayload{GameID: gameID, PlayerID: playerID, Color: color.String()})
		} else {
			events, err = e.MakeMove(context.Background(), protocol.MakeMovePayload{
				GameID: gameID, PlayerID: playerID, Color: color.String(),
				Position: protocol.Position{X: x, Y: y},
			})
		}
		if err != nil {
			e.log.Warn("session: AI move rejected", "game", gameID, "color", color.String(), "error", err)
			return
		}
		if sink := e.eventSink(); sink != nil {
			sink(gameID, events)
		}
	}()
}

func (e *Engine) eventSink() func(gameID string, events []Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sink
}

// persist writes the full GameState back to the store, refreshing its
// TTL, per spec §4.4 ("refreshed on every mutation").
func (e *Engine) persist(ctx context.Context, g *GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	ttl := e.cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return e.store.SetGame(ctx, g.ID, data, ttl)
}

// dispatch sends fn to gameID's executor and blocks for its result,
// enforcing the 5-second soft command deadline from spec §5.
func (e *Engine) dispatch(ctx context.Context, gameID string, fn func(g *GameState) ([]Event, error)) ([]Event, error) {
	ex, err := e.acquire(ctx, gameID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, protocol.NewError(protocol.KindUnknownGame, "no such game")
		}
		return nil, &protocol.CommandError{Kind: protocol.KindStoreError, Message: err.Error()}
	}

	deadline := e.cfg.CommandTimeout
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req := &request{run: fn, done: make(chan result, 1)}
	select {
	case ex.cmds <- req:
	case <-cctx.Done():
		return nil, protocol.NewError(protocol.KindStoreError, "command queue timeout")
	}

	select {
	case res := <-req.done:
		return res.events, res.err
	case <-cctx.Done():
		return nil, protocol.NewError(protocol.KindStoreError, "command deadline exceeded")
	}
}

// Evict removes a game's local executor without touching the store,
// used by the disconnect-grace sweeper once a game has had zero local
// channels for its configured grace period.
func (e *Engine) Evict(gameID string) {
	e.mu.Lock()
	ex, ok := e.games[gameID]
	delete(e.games, gameID)
	e.mu.Unlock()
	if ok {
		close(ex.done)
	}
}

// Snapshot returns the executor's own GameState pointer for a
// locally-held game, not a copy, or nil if the game is not held
// locally.
func (e *Engine) Snapshot(gameID string) *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	ex, ok := e.games[gameID]
	if !ok {
		return nil
	}
	return ex.state
}

// LocalGameIDs lists every game this instance currently owns an
// executor for.
func (e *Engine) LocalGameIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	return ids
}
