// makeMove and passTurn command handlers
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

func parseColor(s string) boardgame.Color {
	switch s {
	case "black":
		return boardgame.Black
	case "white":
		return boardgame.White
	default:
		return boardgame.Empty
	}
}

// clockDelta computes the elapsed think time since the game's last
// recorded move time, or zero while none is recorded: blitz games start
// the clock on their first move, other games when the second player
// joins.
func clockDelta(g *GameState, now time.Time) time.Duration {
	if !g.HasLastMoveTime {
		return 0
	}
	return now.Sub(time.UnixMilli(g.LastMoveTimeMillis))
}

// accountTurn runs clock accounting for the player who just moved,
// returning the events that must precede the moveMade event per the
// ordering contract in spec §4.3, and whether the move arrived too
// late to land on the board.
func accountTurn(g *GameState, mover *Player, delta time.Duration) (events []Event, timedOut bool) {
	if !g.HasLastMoveTime {
		return nil, false
	}

	if g.GameType == boardgame.BlitzGame {
		outcome := boardgame.AccountBlitzMove(delta, time.Duration(g.TimeControl.TimePerMoveSeconds)*time.Second)
		if outcome == boardgame.Timeout {
			return nil, true
		}
		return nil, false
	}

	before := mover.clockState()
	after, outcome := boardgame.AccountMove(before, delta)
	mover.applyClockState(after)

	switch outcome {
	case boardgame.Timeout:
		return nil, true
	case boardgame.ByoYomiEntered:
		full := time.Duration(g.TimeControl.ByoYomiTimeSeconds) * time.Second
		mover.applyClockState(boardgame.ResetByoYomi(mover.clockState(), full))
		events = append(events, groupEvent(protocol.EvtByoYomiStarted, byoYomiEventPayload(mover)))
	case boardgame.ByoYomiReset:
		full := time.Duration(g.TimeControl.ByoYomiTimeSeconds) * time.Second
		mover.applyClockState(boardgame.ResetByoYomi(mover.clockState(), full))
		events = append(events, groupEvent(protocol.EvtByoYomiReset, byoYomiEventPayload(mover)))
	case boardgame.ByoYomiPeriodUsed:
		full := time.Duration(g.TimeControl.ByoYomiTimeSeconds) * time.Second
		mover.applyClockState(boardgame.ResetByoYomi(mover.clockState(), full))
		events = append(events, groupEvent(protocol.EvtByoYomiPeriodUsed, byoYomiEventPayload(mover)))
	}
	return events, false
}

type byoYomiEvent struct {
	PlayerID           string  `json:"playerId"`
	ByoYomiPeriodsLeft int     `json:"byoYomiPeriodsLeft"`
	ByoYomiTimeLeft    float64 `json:"byoYomiTimeLeft"`
}

func byoYomiEventPayload(p *Player) byoYomiEvent {
	return byoYomiEvent{
		PlayerID:           p.ID,
		ByoYomiPeriodsLeft: p.ByoYomiPeriodsLeft,
		ByoYomiTimeLeft:    p.ByoYomiTimeLeft.Seconds(),
	}
}

type timeUpdateEvent struct {
	PlayerID           string  `json:"playerId"`
	TimeRemaining      float64 `json:"timeRemaining"`
	IsInByoYomi        bool    `json:"isInByoYomi"`
	ByoYomiPeriodsLeft int     `json:"byoYomiPeriodsLeft"`
	ByoYomiTimeLeft    float64 `json:"byoYomiTimeLeft"`
}

func timeUpdatePayload(p *Player) timeUpdateEvent {
	return timeUpdateEvent{
		PlayerID:           p.ID,
		TimeRemaining:      p.TimeRemaining.Seconds(),
		IsInByoYomi:        p.IsInByoYomi,
		ByoYomiPeriodsLeft: p.ByoYomiPeriodsLeft,
		ByoYomiTimeLeft:    p.ByoYomiTimeLeft.Seconds(),
	}
}

type moveMadeEvent struct {
	PlayerID      string `json:"playerId"`
	Color         string `json:"color"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Pass          bool   `json:"pass"`
	CapturedCount int    `json:"capturedCount"`
}

func timeoutLoss(g *GameState, loser boardgame.Color) []Event {
	g.Status = Finished
	g.Winner = loser.Opponent()
	g.HasWinner = true
	g.Result = resultSuffix(g.Winner, "T")
	return []Event{
		groupEvent(protocol.EvtPlayerTimeout, map[string]string{"color": loser.String()}),
		groupEvent(protocol.EvtGameState, g),
	}
}

func resultSuffix(winner boardgame.Color, code string) string {
	switch winner {
	case boardgame.Black:
		return "B+" + code
	case boardgame.White:
		return "W+" + code
	default:
		return code
	}
}

// MakeMove validates and applies a stone placement, in the order the
// ordering contract in spec §4.3/§4.5 demands: clock-accounting events,
// then moveMade, then gameState, then timeUpdate.
func (e *Engine) MakeMove(ctx context.Context, req protocol.MakeMovePayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Playing {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game is not in progress")
		}
		color := parseColor(req.Color)
		if color == boardgame.Empty || color != g.CurrentTurn {
			return nil, protocol.NewError(protocol.KindNotYourTurn, "it is not that color's turn")
		}
		mover := g.PlayerByColor(color)
		if mover == nil || mover.ID != req.PlayerID {
			return nil, protocol.NewError(protocol.KindUnauthorizedForColor, "player does not hold that color")
		}

		pos := boardgame.Position{X: req.Position.X, Y: req.Position.Y}
		result, failure := boardgame.ApplyMove(g.Board, pos, g.KoPosition, g.HasKo, color)
		if failure != boardgame.NoFailure {
			kind := moveFailureKind(failure)
			return []Event{initiatorEvent(req.PlayerID, protocol.EvtError, (&protocol.CommandError{Kind: kind, Message: failure.String()}).ToPayload())}, nil
		}

		now := time.Now()
		delta := clockDelta(g, now)
		clockEvents, timedOut := accountTurn(g, mover, delta)
		if timedOut {
			return timeoutLoss(g, color), nil
		}

		g.Board = result.Board
		g.KoPosition = result.KoCandidate
		g.HasKo = result.HasKo
		g.CapturedStones[color.String()] += len(result.Captured)

		move := Move{
			X: pos.X, Y: pos.Y, Color: color, PlayerID: req.PlayerID,
			Timestamp: now.UnixMilli(), TimeSpentOnMove: delta.Seconds(),
			IsInByoYomi: mover.IsInByoYomi, ByoYomiTimeLeft: mover.ByoYomiTimeLeft.Seconds(),
			ByoYomiPeriodsLeft: mover.ByoYomiPeriodsLeft, CapturedCount: len(result.Captured),
		}
		g.History = append(g.History, move)
		g.LastMove = &move
		g.LastMoveColor = color
		g.LastMovePlayerID = req.PlayerID
		g.LastMoveCapturedCount = len(result.Captured)
		g.CurrentTurn = color.Opponent()
		g.LastMoveTimeMillis = now.UnixMilli()
		g.HasLastMoveTime = true

		events := append(clockEvents,
			groupEvent(protocol.EvtMoveMade, moveMadeEvent{PlayerID: req.PlayerID, Color: color.String(), X: pos.X, Y: pos.Y, CapturedCount: len(result.Captured)}),
			groupEvent(protocol.EvtGameState, g),
			groupEvent(protocol.EvtTimeUpdate, timeUpdatePayload(mover)),
		)
		return events, nil
	})
}

func moveFailureKind(f boardgame.MoveFailure) protocol.ErrorKind {
	switch f {
	case boardgame.Occupied:
		return protocol.KindOccupied
	case boardgame.OutOfBounds:
		return protocol.KindOutOfBounds
	case boardgame.KoViolation:
		return protocol.KindKoViolation
	case boardgame.Suicide:
		return protocol.KindSuicide
	default:
		return protocol.KindInvalidCommand
	}
}

// PassTurn records a pass, applying the same clock accounting as
// MakeMove, and transitions the game to scoring once both players have
// passed consecutively (spec invariant: "two consecutive passes end
// play").
func (e *Engine) PassTurn(ctx context.Context, req protocol.PassTurnPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Playing {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game is not in progress")
		}
		color := parseColor(req.Color)
		if color == boardgame.Empty || color != g.CurrentTurn {
			return nil, protocol.NewError(protocol.KindNotYourTurn, "it is not that color's turn")
		}
		mover := g.PlayerByColor(color)
		if mover == nil || mover.ID != req.PlayerID {
			return nil, protocol.NewError(protocol.KindUnauthorizedForColor, "player does not hold that color")
		}

		now := time.Now()
		delta := clockDelta(g, now)
		clockEvents, timedOut := accountTurn(g, mover, delta)
		if timedOut {
			return timeoutLoss(g, color), nil
		}

		move := Move{
			Pass: true, Color: color, PlayerID: req.PlayerID, Timestamp: now.UnixMilli(),
			TimeSpentOnMove: delta.Seconds(), IsInByoYomi: mover.IsInByoYomi,
			ByoYomiTimeLeft: mover.ByoYomiTimeLeft.Seconds(), ByoYomiPeriodsLeft: mover.ByoYomiPeriodsLeft,
		}
		g.History = append(g.History, move)
		g.LastMove = &move
		g.LastMoveColor = color
		g.LastMovePlayerID = req.PlayerID
		g.LastMoveCapturedCount = 0
		g.CurrentTurn = color.Opponent()
		g.LastMoveTimeMillis = now.UnixMilli()
		g.HasLastMoveTime = true

		events := append(clockEvents,
			groupEvent(protocol.EvtMoveMade, moveMadeEvent{PlayerID: req.PlayerID, Color: color.String(), Pass: true}),
		)

		if len(g.History) >= 2 && g.History[len(g.History)-1].Pass && g.History[len(g.History)-2].Pass {
			g.Status = Scoring
			g.DeadStones = boardgame.PositionSet{}
			_, territory := boardgame.ScoreGame(g.Board, nil, capturedMap(g), g.Komi, g.ScoringRule)
			g.Territory = territory
			events = append(events, groupEvent(protocol.EvtScoringPhaseStarted, g))
		} else {
			events = append(events, groupEvent(protocol.EvtGameState, g), groupEvent(protocol.EvtTimeUpdate, timeUpdatePayload(mover)))
		}
		return events, nil
	})
}

func capturedMap(g *GameState) map[boardgame.Color]int {
	return map[boardgame.Color]int{
		boardgame.Black: g.CapturedStones["black"],
		boardgame.White: g.CapturedStones["white"],
	}
}
