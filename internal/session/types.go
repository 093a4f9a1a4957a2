// Session data model: GameState, Player, Move
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

// Package session implements the central component of the server: the
// per-game state machine, command dispatch, and event emission. It is
// the direct generalization of the teacher's Game.Play goroutine-per-
// game loop, built on the Board Rules Kernel, Scoring Engine and Clock
// Engine in internal/boardgame.
package session

import (
	"time"

	"weiqi-server/internal/boardgame"
)

// Status is one of the four states a GameState can be in.
type Status string

const (
	Waiting  Status = "waiting"
	Playing  Status = "playing"
	Scoring  Status = "scoring"
	Finished Status = "finished"
)

// Player is one seat at the board, or a spectator when IsSpectator is
// set (spectators are tracked in GameState.Spectators, never mixed
// into GameState.Players).
type Player struct {
	ID                 string          `json:"id"`
	Username           string          `json:"username"`
	Color              boardgame.Color `json:"color"`
	TimeRemaining      time.Duration   `json:"timeRemaining"`
	ByoYomiPeriodsLeft int             `json:"byoYomiPeriodsLeft"`
	ByoYomiTimeLeft    time.Duration   `json:"byoYomiTimeLeft"`
	IsInByoYomi        bool            `json:"isInByoYomi"`
	IsSpectator        bool            `json:"isSpectator"`
	IsAI               bool            `json:"isAI"`
}

func (p *Player) clockState() boardgame.ClockState {
	return boardgame.ClockState{
		TimeRemaining:      p.TimeRemaining,
		ByoYomiPeriodsLeft: p.ByoYomiPeriodsLeft,
		ByoYomiTimeLeft:    p.ByoYomiTimeLeft,
		IsInByoYomi:        p.IsInByoYomi,
	}
}

func (p *Player) applyClockState(s boardgame.ClockState) {
	p.TimeRemaining = s.TimeRemaining
	p.ByoYomiPeriodsLeft = s.ByoYomiPeriodsLeft
	p.ByoYomiTimeLeft = s.ByoYomiTimeLeft
	p.IsInByoYomi = s.IsInByoYomi
}

// Move is one committed history entry: either a stone placement or a
// pass, distinguished by Pass.
type Move struct {
	Pass               bool            `json:"pass,omitempty"`
	X                  int             `json:"x"`
	Y                  int             `json:"y"`
	Color              boardgame.Color `json:"color"`
	PlayerID           string          `json:"playerId"`
	Timestamp          int64           `json:"timestamp"`
	TimeSpentOnMove    float64         `json:"timeSpentOnMove"`
	IsInByoYomi        bool            `json:"isInByoYomi"`
	ByoYomiTimeLeft    float64         `json:"byoYomiTimeLeft"`
	ByoYomiPeriodsLeft int             `json:"byoYomiPeriodsLeft"`
	CapturedCount      int             `json:"capturedCount"`
}

// UndoRequest tracks a pending requestUndo awaiting a respondUndo.
type UndoRequest struct {
	RequestedBy string `json:"requestedBy"`
	MoveIndex   int    `json:"moveIndex"`
}

// GameState is the single source of truth for one session, matching
// spec §3 field for field. It is only ever mutated on the owning
// per-game executor goroutine (see Engine in engine.go).
type GameState struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	Status      Status          `json:"status"`
	Board       *boardgame.Board `json:"board"`
	CurrentTurn boardgame.Color `json:"currentTurn"`

	Players    []*Player          `json:"players"`
	Spectators map[string]*Player `json:"spectators"`

	History        []Move              `json:"history"`
	CapturedStones map[string]int      `json:"capturedStones"` // keyed "black"/"white"
	KoPosition     boardgame.Position  `json:"koPosition"`
	HasKo          bool                `json:"hasKo"`

	TimeControl boardgame.TimeControl `json:"timeControl"`

	GameType    boardgame.GameType `json:"gameType"`
	Handicap    int                `json:"handicap"`
	Komi        float64            `json:"komi"`
	ScoringRule boardgame.RuleSet  `json:"scoringRule"`

	LastMoveTimeMillis int64 `json:"lastMoveTime"` // 0 means null/unset
	HasLastMoveTime    bool  `json:"-"`

	LastMove              *Move           `json:"lastMove,omitempty"`
	LastMoveColor         boardgame.Color `json:"lastMoveColor,omitempty"`
	LastMovePlayerID      string          `json:"lastMovePlayerId,omitempty"`
	LastMoveCapturedCount int             `json:"lastMoveCapturedCount"`

	DeadStones boardgame.PositionSet `json:"deadStones,omitempty"`
	Territory  boardgame.TerritoryMap `json:"territory,omitempty"`
	Score      *boardgame.Score       `json:"score,omitempty"`

	Winner    boardgame.Color `json:"winner,omitempty"`
	HasWinner bool            `json:"-"`
	Result    string          `json:"result,omitempty"`

	UndoRequest *UndoRequest `json:"undoRequest,omitempty"`

	// LastActivity records the local wall-clock time of the last
	// command this instance completed for the game. Not serialized onto
	// the wire: it has no meaning to a client.
	LastActivity time.Time `json:"-"`
	// LocalChannels is not maintained and stays zero; the empty-game
	// sweep counts connections in internal/transport's Room instead.
	// Not serialized: it is per-instance, not part of authoritative state.
	LocalChannels int `json:"-"`
	// LastResyncAt tracks the last time TimerTick pushed a full gameState
	// resync, so it can be throttled to once every 5 seconds rather than
	// once per tick. Not serialized for the same reason as LastActivity.
	LastResyncAt time.Time `json:"-"`
}

// PlayerByID returns the player (not spectator) with the given id, or
// nil.
func (g *GameState) PlayerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerByColor returns the player holding color, or nil.
func (g *GameState) PlayerByColor(c boardgame.Color) *Player {
	for _, p := range g.Players {
		if p.Color == c {
			return p
		}
	}
	return nil
}

// PlayerByUsername returns a player (not spectator) with the given
// username, used by joinGame's rejoin-by-username resolution.
func (g *GameState) PlayerByUsername(username string) *Player {
	for _, p := range g.Players {
		if p.Username == username {
			return p
		}
	}
	return nil
}
