// createGame and joinGame command handlers
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
	"time"

	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/protocol"
)

// CreateGame allocates a new session and registers its executor. It
// never contends with any other command, since nothing can reference
// the new id until this call returns.
func (e *Engine) CreateGame(ctx context.Context, req protocol.CreateGamePayload) (*GameState, []Event, error) {
	size := req.BoardSize
	if size == 0 {
		size = e.cfg.BoardSize
	}
	if size < boardgame.MinSize || size > boardgame.MaxSize {
		return nil, nil, protocol.NewError(protocol.KindInvalidCommand, "boardSize out of range")
	}

	rule := boardgame.RuleSet(req.ScoringRule)
	if rule == "" {
		rule = e.cfg.ScoringRule
	}

	handicap := req.Handicap
	gameType := boardgame.GameType(req.GameType)
	if gameType == "" {
		if handicap > 0 {
			gameType = boardgame.HandicapGame
		} else {
			gameType = boardgame.EvenGame
		}
	}

	board := boardgame.NewBoard(size)
	for _, p := range boardgame.HandicapStones(size, handicap) {
		board.Stones[p] = boardgame.Black
	}

	komi := req.Komi
	if komi == 0 && handicap > 0 {
		komi = boardgame.HandicapKomi(rule)
	} else if komi == 0 {
		komi = e.cfg.Komi
	}

	currentTurn := boardgame.Black
	if handicap > 0 {
		currentTurn = boardgame.White
	}

	color := boardgame.Black
	switch req.ColorPreference {
	case "white":
		color = boardgame.White
	case "black":
		color = boardgame.Black
	}

	tc := boardgame.TimeControl{
		TimeControlMinutes: orDefaultInt(req.TimeControlMin, e.cfg.TimeControlMinutes),
		ByoYomiPeriods:     orDefaultInt(req.ByoYomiPeriods, e.cfg.ByoYomiPeriods),
		ByoYomiTimeSeconds: orDefaultInt(req.ByoYomiTimeSec, e.cfg.ByoYomiTimeSeconds),
		TimePerMoveSeconds: orDefaultInt(req.TimePerMoveSec, e.cfg.TimePerMoveSeconds),
	}

	initiator := &Player{
		ID:                 req.PlayerID,
		Username:           req.Username,
		Color:              color,
		TimeRemaining:      time.Duration(tc.TimeControlMinutes) * time.Minute,
		ByoYomiPeriodsLeft: tc.ByoYomiPeriods,
		ByoYomiTimeLeft:    time.Duration(tc.ByoYomiTimeSeconds) * time.Second,
		IsAI:               req.IsAI,
	}
	if gameType == boardgame.BlitzGame {
		initiator.TimeRemaining = time.Duration(tc.TimePerMoveSeconds) * time.Second
	}

	g := &GameState{
		ID:             newGameID(),
		Code:           newJoinCode(),
		Status:         Waiting,
		Board:          board,
		CurrentTurn:    currentTurn,
		Players:        []*Player{initiator},
		Spectators:     make(map[string]*Player),
		CapturedStones: map[string]int{"black": 0, "white": 0},
		TimeControl:    tc,
		GameType:       gameType,
		Handicap:       handicap,
		Komi:           komi,
		ScoringRule:    rule,
		LastActivity:   time.Now(),
	}

	ex := e.spawn(g)
	if err := e.persist(ctx, ex.state); err != nil {
		e.Evict(g.ID)
		return nil, nil, &protocol.CommandError{Kind: protocol.KindStoreError, Message: err.Error()}
	}
	if err := e.store.SetSessionCode(ctx, g.Code, g.ID, sessionTTL(e.cfg)); err != nil {
		e.log.Warn("session: failed to index join code", "game", g.ID, "error", err)
	}

	events := []Event{
		initiatorEvent(initiator.ID, protocol.EvtGameCreated, gameCreatedPayload(g)),
		groupEvent(protocol.EvtGameState, g),
	}
	return g, events, nil
}

func sessionTTL(cfg Config) time.Duration {
	if cfg.SessionTTL <= 0 {
		return 24 * time.Hour
	}
	return cfg.SessionTTL
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

type gameCreatedResponse struct {
	GameID string `json:"gameId"`
	Code   string `json:"code"`
}

func gameCreatedPayload(g *GameState) gameCreatedResponse {
	return gameCreatedResponse{GameID: g.ID, Code: g.Code}
}

// JoinGame resolves a game by id (first) or join code, then applies the
// admission rule from spec §4.5: rejoin by username, else fill the
// open seat, else join as a spectator (or raise GameFull if the client
// did not opt into spectating).
func (e *Engine) JoinGame(ctx context.Context, req protocol.JoinGamePayload) (*GameState, []Event, error) {
	gameID := req.GameID
	if gameID == "" && req.Code != "" {
		id, err := e.store.GetSessionByCode(ctx, normalizeCode(req.Code))
		if err != nil {
			return nil, nil, protocol.NewError(protocol.KindUnknownGame, "no game with that code")
		}
		gameID = id
	}
	if gameID == "" {
		return nil, nil, protocol.NewError(protocol.KindInvalidCommand, "gameId or code required")
	}

	var snap *GameState
	events, err := e.dispatch(ctx, gameID, func(g *GameState) ([]Event, error) {
		if existing := g.PlayerByUsername(req.Username); existing != nil {
			// Rejoin: the player's clock state is preserved untouched.
			snap = g
			return []Event{
				initiatorEvent(req.PlayerID, protocol.EvtJoinedGame, joinedGamePayload(g, existing)),
				groupEvent(protocol.EvtGameState, g),
			}, nil
		}

		if g.Status == Waiting && len(g.Players) == 1 {
			owner := g.Players[0]
			joinerColor := owner.Color.Opponent()
			tc := g.TimeControl
			joiner := &Player{
				ID:                 req.PlayerID,
				Username:           req.Username,
				Color:              joinerColor,
				TimeRemaining:      time.Duration(tc.TimeControlMinutes) * time.Minute,
				ByoYomiPeriodsLeft: tc.ByoYomiPeriods,
				ByoYomiTimeLeft:    time.Duration(tc.ByoYomiTimeSeconds) * time.Second,
				IsAI:               req.IsAI,
			}
			if g.GameType == boardgame.BlitzGame {
				joiner.TimeRemaining = time.Duration(tc.TimePerMoveSeconds) * time.Second
			}
			g.Players = append(g.Players, joiner)
			g.Status = Playing
			if g.GameType != boardgame.BlitzGame {
				now := time.Now()
				g.LastMoveTimeMillis = now.UnixMilli()
				g.HasLastMoveTime = true
			}
			snap = g
			events := []Event{
				groupEvent(protocol.EvtPlayerJoined, playerJoinedPayload(joiner)),
				initiatorEvent(req.PlayerID, protocol.EvtJoinedGame, joinedGamePayload(g, joiner)),
				groupEvent(protocol.EvtGameState, g),
			}
			return events, nil
		}

		if !req.AsSpectator {
			return nil, protocol.NewError(protocol.KindGameFull, "game already has two players")
		}

		spectator := &Player{ID: req.PlayerID, Username: req.Username, IsSpectator: true}
		g.Spectators[spectator.ID] = spectator
		snap = g
		return []Event{
			groupEvent(protocol.EvtPlayerJoined, playerJoinedPayload(spectator)),
			initiatorEvent(req.PlayerID, protocol.EvtJoinedGame, joinedGamePayload(g, spectator)),
			groupEvent(protocol.EvtGameState, g),
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return snap, events, nil
}

func joinedGamePayload(g *GameState, p *Player) protocol.JoinedGamePayload {
	return protocol.JoinedGamePayload{
		Success:     true,
		GameID:      g.ID,
		PlayerID:    p.ID,
		NumPlayers:  len(g.Players),
		Status:      string(g.Status),
		CurrentTurn: g.CurrentTurn.String(),
	}
}

type playerJoinedEvent struct {
	PlayerID    string `json:"playerId"`
	Username    string `json:"username"`
	IsSpectator bool   `json:"isSpectator"`
}

func playerJoinedPayload(p *Player) playerJoinedEvent {
	return playerJoinedEvent{PlayerID: p.ID, Username: p.Username, IsSpectator: p.IsSpectator}
}
