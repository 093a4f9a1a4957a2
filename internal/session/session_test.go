// Scripted session-engine scenarios: byo-yomi accounting, the two-pass
// scoring transition, and rejoin preserving clock state.
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

package session_test

import (
	"context"
	"testing"
	"time"

	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/protocol"
	"weiqi-server/internal/session"
	"weiqi-server/internal/store"
)

func newTestEngine() *session.Engine {
	return session.NewEngine(store.NewMemStore(), nil, session.Config{
		BoardSize:          9,
		ScoringRule:        boardgame.Japanese,
		Komi:               6.5,
		TimeControlMinutes: 1,
		ByoYomiPeriods:     2,
		ByoYomiTimeSeconds: 30,
		TimePerMoveSeconds: 10,
		CommandTimeout:     2 * time.Second,
		DisconnectGrace:    time.Minute,
		SessionTTL:         time.Hour,
	}, nil)
}

func createAndFillGame(t *testing.T, e *session.Engine) *session.GameState {
	t.Helper()
	ctx := context.Background()
	g, _, err := e.CreateGame(ctx, protocol.CreateGamePayload{PlayerID: "p1", Username: "black", BoardSize: 9})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, _, err := e.JoinGame(ctx, protocol.JoinGamePayload{GameID: g.ID, PlayerID: "p2", Username: "white"}); err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	return e.Snapshot(g.ID)
}

func backdate(g *session.GameState, ago time.Duration) {
	g.LastMoveTimeMillis = time.Now().Add(-ago).UnixMilli()
}

func hasEvent(events []session.Event, name string) bool {
	for _, ev := range events {
		if ev.Message.Event == name {
			return true
		}
	}
	return false
}

// S3: a player who overruns main time enters byo-yomi, a move finished
// inside the period resets it, and a move that overruns the period
// consumes one, in that order.
func TestByoYomiResetThenConsumption(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	g := createAndFillGame(t, e)

	// Black overruns the 60s main time budget: enters byo-yomi.
	backdate(g, 70*time.Second)
	events, err := e.MakeMove(ctx, protocol.MakeMovePayload{GameID: g.ID, PlayerID: "p1", Color: "black", Position: protocol.Position{X: 2, Y: 2}})
	if err != nil {
		t.Fatalf("black move 1: %v", err)
	}
	if !hasEvent(events, protocol.EvtByoYomiStarted) {
		t.Fatalf("expected byoYomiStarted, got %#v", events)
	}
	black := g.PlayerByColor(boardgame.Black)
	if !black.IsInByoYomi || black.ByoYomiPeriodsLeft != 2 {
		t.Fatalf("black clock state after entering byo-yomi: %+v", black)
	}

	// White moves promptly, well inside its own main time.
	if _, err := e.MakeMove(ctx, protocol.MakeMovePayload{GameID: g.ID, PlayerID: "p2", Color: "white", Position: protocol.Position{X: 3, Y: 3}}); err != nil {
		t.Fatalf("white move 1: %v", err)
	}

	// Black finishes the next move inside the 30s byo-yomi period: reset.
	backdate(g, 10*time.Second)
	events, err = e.MakeMove(ctx, protocol.MakeMovePayload{GameID: g.ID, PlayerID: "p1", Color: "black", Position: protocol.Position{X: 4, Y: 4}})
	if err != nil {
		t.Fatalf("black move 2: %v", err)
	}
	if !hasEvent(events, protocol.EvtByoYomiReset) {
		t.Fatalf("expected byoYomiReset, got %#v", events)
	}
	if black.ByoYomiPeriodsLeft != 2 {
		t.Fatalf("byo-yomi reset must not consume a period, got %d left", black.ByoYomiPeriodsLeft)
	}

	if _, err := e.MakeMove(ctx, protocol.MakeMovePayload{GameID: g.ID, PlayerID: "p2", Color: "white", Position: protocol.Position{X: 5, Y: 5}}); err != nil {
		t.Fatalf("white move 2: %v", err)
	}

	// Black overruns the 30s period this time: one period is consumed.
	backdate(g, 40*time.Second)
	events, err = e.MakeMove(ctx, protocol.MakeMovePayload{GameID: g.ID, PlayerID: "p1", Color: "black", Position: protocol.Position{X: 6, Y: 6}})
	if err != nil {
		t.Fatalf("black move 3: %v", err)
	}
	if !hasEvent(events, protocol.EvtByoYomiPeriodUsed) {
		t.Fatalf("expected byoYomiPeriodUsed, got %#v", events)
	}
	if black.ByoYomiPeriodsLeft != 1 {
		t.Fatalf("expected one byo-yomi period consumed, got %d left", black.ByoYomiPeriodsLeft)
	}
}

// S4: two consecutive passes end play and move the game into scoring;
// confirming the score (gameEnded) finalizes the result.
func TestTwoPassesThenConfirmScore(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	g := createAndFillGame(t, e)

	if _, err := e.PassTurn(ctx, protocol.PassTurnPayload{GameID: g.ID, PlayerID: "p1", Color: "black"}); err != nil {
		t.Fatalf("black pass: %v", err)
	}
	if g.Status != session.Playing {
		t.Fatalf("one pass must not end play, got status %v", g.Status)
	}

	events, err := e.PassTurn(ctx, protocol.PassTurnPayload{GameID: g.ID, PlayerID: "p2", Color: "white"})
	if err != nil {
		t.Fatalf("white pass: %v", err)
	}
	if g.Status != session.Scoring {
		t.Fatalf("two consecutive passes must enter scoring, got status %v", g.Status)
	}
	if !hasEvent(events, protocol.EvtScoringPhaseStarted) {
		t.Fatalf("expected scoringPhaseStarted, got %#v", events)
	}

	events, err = e.GameEnded(ctx, protocol.GameEndedPayload{GameID: g.ID})
	if err != nil {
		t.Fatalf("GameEnded: %v", err)
	}
	if g.Status != session.Finished {
		t.Fatalf("expected Finished after confirm, got %v", g.Status)
	}
	if g.Score == nil {
		t.Fatalf("expected a computed score after confirm")
	}
	if !hasEvent(events, protocol.EvtGameFinished) {
		t.Fatalf("expected gameFinished, got %#v", events)
	}
	if g.Result == "" {
		t.Fatalf("expected a non-empty result string")
	}
}

// S6: a player who rejoins by username gets their existing clock state
// back untouched, not a fresh one.
func TestRejoinPreservesClockState(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	g := createAndFillGame(t, e)

	backdate(g, 70*time.Second)
	if _, err := e.MakeMove(ctx, protocol.MakeMovePayload{GameID: g.ID, PlayerID: "p1", Color: "black", Position: protocol.Position{X: 2, Y: 2}}); err != nil {
		t.Fatalf("black move: %v", err)
	}
	black := g.PlayerByColor(boardgame.Black)
	if !black.IsInByoYomi {
		t.Fatalf("expected black to be in byo-yomi before rejoin")
	}
	wantPeriods := black.ByoYomiPeriodsLeft
	wantRemaining := black.TimeRemaining

	if _, _, err := e.JoinGame(ctx, protocol.JoinGamePayload{GameID: g.ID, PlayerID: "p1", Username: "black", IsReconnect: true}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	rejoined := g.PlayerByColor(boardgame.Black)
	if rejoined.ByoYomiPeriodsLeft != wantPeriods || rejoined.TimeRemaining != wantRemaining || !rejoined.IsInByoYomi {
		t.Fatalf("rejoin must preserve clock state, got %+v", rejoined)
	}
	if len(g.Players) != 2 {
		t.Fatalf("rejoin must not add a duplicate seat, got %d players", len(g.Players))
	}
}
