// Remaining command handlers: resign, undo negotiation, chat, sync,
// timer ticks, and leaving a game.
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

// Resign ends the game immediately in the resigning color's loss.
func (e *Engine) Resign(ctx context.Context, req protocol.ResignGamePayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Playing && g.Status != Scoring {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game already finished")
		}
		color := parseColor(req.Color)
		player := g.PlayerByID(req.PlayerID)
		if player == nil || player.Color != color {
			return nil, protocol.NewError(protocol.KindUnauthorizedForColor, "player does not hold that color")
		}
		g.Status = Finished
		g.Winner = color.Opponent()
		g.HasWinner = true
		g.Result = resultSuffix(g.Winner, "R")
		return []Event{
			groupEvent(protocol.EvtPlayerResigned, map[string]string{"playerId": req.PlayerID, "color": color.String()}),
			groupEvent(protocol.EvtGameState, g),
		}, nil
	})
}

// RequestUndo records a pending undo negotiation. A player may not
// negotiate against their own outstanding request.
func (e *Engine) RequestUndo(ctx context.Context, req protocol.RequestUndoPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Playing || len(g.History) == 0 {
			return nil, protocol.NewError(protocol.KindWrongPhase, "no move to undo")
		}
		if req.MoveIndex < 0 || req.MoveIndex > len(g.History) {
			return nil, protocol.NewError(protocol.KindInvalidCommand, "moveIndex out of range")
		}
		g.UndoRequest = &UndoRequest{RequestedBy: req.PlayerID, MoveIndex: req.MoveIndex}
		return []Event{groupEvent(protocol.EvtGameState, g)}, nil
	})
}

// RespondToUndoRequest accepts or declines a pending undo, replaying
// history from the initial handicap position up to the accepted index
// to reconstruct board, captures, ko and turn state.
func (e *Engine) RespondToUndoRequest(ctx context.Context, req protocol.RespondToUndoRequestPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.UndoRequest == nil {
			return nil, protocol.NewError(protocol.KindInvalidCommand, "no pending undo request")
		}
		if g.UndoRequest.RequestedBy == req.PlayerID {
			return nil, protocol.NewError(protocol.KindInvalidCommand, "requester cannot respond to their own request")
		}
		pending := g.UndoRequest
		g.UndoRequest = nil

		if !req.Accepted {
			return []Event{groupEvent(protocol.EvtGameState, g)}, nil
		}

		replayUndo(g, pending.MoveIndex)
		return []Event{groupEvent(protocol.EvtGameState, g)}, nil
	})
}

// replayUndo truncates history to index and rebuilds every derived
// field by replaying the remaining moves through the rules kernel from
// a freshly seeded handicap board, since capture state cannot simply be
// rewound.
func replayUndo(g *GameState, index int) {
	kept := g.History[:index]
	g.History = nil

	board := boardgame.NewBoard(g.Board.Size)
	for _, p := range boardgame.HandicapStones(g.Board.Size, g.Handicap) {
		board.Stones[p] = boardgame.Black
	}
	captures := map[string]int{"black": 0, "white": 0}
	var koPos boardgame.Position
	hasKo := false
	turn := boardgame.Black
	if g.Handicap > 0 {
		turn = boardgame.White
	}

	for _, mv := range kept {
		if mv.Pass {
			g.History = append(g.History, mv)
			turn = turn.Opponent()
			continue
		}
		result, failure := boardgame.ApplyMove(board, boardgame.Position{X: mv.X, Y: mv.Y}, koPos, hasKo, mv.Color)
		if failure != boardgame.NoFailure {
			// The move was legal when first played; a kernel change
			// would be the only way this fails during replay.
			continue
		}
		board = result.Board
		koPos = result.KoCandidate
		hasKo = result.HasKo
		captures[mv.Color.String()] += len(result.Captured)
		g.History = append(g.History, mv)
		turn = turn.Opponent()
	}

	g.Board = board
	g.KoPosition = koPos
	g.HasKo = hasKo
	g.CapturedStones = captures
	g.CurrentTurn = turn
	if len(g.History) > 0 {
		last := g.History[len(g.History)-1]
		g.LastMove = &last
		g.LastMoveColor = last.Color
		g.LastMovePlayerID = last.PlayerID
		g.LastMoveCapturedCount = last.CapturedCount
	} else {
		g.LastMove = nil
		g.LastMoveColor = boardgame.Empty
		g.LastMovePlayerID = ""
		g.LastMoveCapturedCount = 0
	}
}

// ChatMessage is routed through the owning executor purely so its
// ordering relative to game events is preserved; it never mutates
// GameState.
func (e *Engine) ChatMessage(ctx context.Context, req protocol.ChatMessagePayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		payload := protocol.ChatEventPayload{
			ID:        newGameID()[:12],
			PlayerID:  req.PlayerID,
			Username:  req.Username,
			Message:   req.Message,
			Timestamp: time.Now().UnixMilli(),
		}
		return []Event{groupEvent(protocol.EvtChatMessage, payload)}, nil
	})
}

// RequestSync answers with a full state snapshot and per-player time
// updates, without mutating anything (spec invariant: idempotent).
func (e *Engine) RequestSync(ctx context.Context, req protocol.RequestSyncPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		events := []Event{initiatorEvent(req.PlayerID, protocol.EvtSyncGameState, g)}
		for _, p := range g.Players {
			events = append(events, initiatorEvent(req.PlayerID, protocol.EvtTimeUpdate, timeUpdatePayload(p)))
		}
		return events, nil
	})
}

// resyncInterval is how often TimerTick pushes a full gameState resync
// alongside its per-tick time updates, a periodic consistency backstop
// independent of whatever incremental events already went out.
const resyncInterval = 5 * time.Second

// TimerTick is the clock-driven heartbeat: it projects remaining time
// for display, only mutates state when the projection shows the player
// on the move has genuinely run out of time, and every 5 seconds also
// pushes a full gameState resync regardless of phase.
func (e *Engine) TimerTick(ctx context.Context, req protocol.TimerTickPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		now := time.Now()
		resync := now.Sub(g.LastResyncAt) >= resyncInterval
		if resync {
			g.LastResyncAt = now
		}

		if g.Status != Playing {
			if resync {
				return []Event{groupEvent(protocol.EvtGameState, g)}, nil
			}
			return nil, nil
		}
		mover := g.PlayerByColor(g.CurrentTurn)
		if mover == nil {
			if resync {
				return []Event{groupEvent(protocol.EvtGameState, g)}, nil
			}
			return nil, nil
		}
		elapsed := clockDelta(g, now)

		if g.GameType == boardgame.BlitzGame {
			budget := time.Duration(g.TimeControl.TimePerMoveSeconds) * time.Second
			if elapsed > budget {
				return timeoutLoss(g, g.CurrentTurn), nil
			}
			if resync {
				return []Event{groupEvent(protocol.EvtGameState, g)}, nil
			}
			return nil, nil
		}

		projected := boardgame.ProjectedRemaining(mover.clockState(), elapsed)
		if !projected.IsInByoYomi && projected.TimeRemaining <= 0 && mover.ByoYomiPeriodsLeft == 0 {
			return timeoutLoss(g, g.CurrentTurn), nil
		}
		if projected.IsInByoYomi && projected.ByoYomiTimeLeft <= 0 && mover.ByoYomiPeriodsLeft <= 1 {
			return timeoutLoss(g, g.CurrentTurn), nil
		}

		events := make([]Event, 0, len(g.Players)+1)
		for _, p := range g.Players {
			if p.ID == mover.ID {
				events = append(events, groupEvent(protocol.EvtTimeUpdate, timeUpdatePayload(&Player{
					ID: p.ID, TimeRemaining: projected.TimeRemaining, IsInByoYomi: projected.IsInByoYomi,
					ByoYomiPeriodsLeft: projected.ByoYomiPeriodsLeft, ByoYomiTimeLeft: projected.ByoYomiTimeLeft,
				})))
				continue
			}
			events = append(events, groupEvent(protocol.EvtTimeUpdate, timeUpdatePayload(p)))
		}
		if resync {
			events = append(events, groupEvent(protocol.EvtGameState, g))
		}
		return events, nil
	})
}

// LeaveGame announces a departure without evicting the player from the
// roster: spec requires the seat to remain reserved through the
// disconnect-grace window owned by the transport layer's Room.
func (e *Engine) LeaveGame(ctx context.Context, req protocol.LeaveGamePayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		return []Event{groupEvent(protocol.EvtPlayerLeft, map[string]string{"playerId": req.PlayerID})}, nil
	})
}
