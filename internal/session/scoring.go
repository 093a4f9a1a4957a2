// Scoring-phase command handlers: dead stone marking and confirmation
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
	"strconv"

	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/protocol"
)

// ToggleDeadStone flips one group's dead/alive marking. Marking a group
// dead also auto-extends the marking to small, nearly-captured
// neighbour groups of the same color, the same heuristic most Go
// clients apply so a player doesn't have to click every stone of a
// dead chain individually.
func (e *Engine) ToggleDeadStone(ctx context.Context, req protocol.ToggleDeadStonePayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Scoring {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game is not in scoring")
		}
		pos := boardgame.Position{X: req.Position.X, Y: req.Position.Y}
		if g.Board.At(pos) == boardgame.Empty {
			return nil, protocol.NewError(protocol.KindInvalidCommand, "position is empty")
		}
		if g.DeadStones == nil {
			g.DeadStones = boardgame.PositionSet{}
		}

		group := boardgame.ConnectedGroup(pos, g.Board.Stones, g.Board.Size)
		deadCount := 0
		for p := range group {
			if g.DeadStones[p] {
				deadCount++
			}
		}
		markDead := deadCount*2 < len(group)

		for p := range group {
			if markDead {
				g.DeadStones[p] = true
			} else {
				delete(g.DeadStones, p)
			}
		}

		if markDead {
			autoExtendDeadNeighbors(g, group)
		}

		return []Event{
			groupEvent(protocol.EvtDeadStoneToggled, map[string]interface{}{"deadStones": g.DeadStones}),
			groupEvent(protocol.EvtGameState, g),
		}, nil
	})
}

// autoExtendDeadNeighbors marks small, low-liberty same-color groups
// that share a liberty with the marked group dead too, mirroring a client-side convenience rather than a
// rules requirement: a chain reduced to a couple of stones with one or
// two liberties next to a group the players just agreed is dead is
// almost always dead itself.
func autoExtendDeadNeighbors(g *GameState, seed map[boardgame.Position]bool) {
	visitedGroups := make(map[boardgame.Position]bool)
	queue := make([]boardgame.Position, 0, len(seed))
	for p := range seed {
		queue = append(queue, p)
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		color := g.Board.At(p)
		if color == boardgame.Empty {
			continue
		}
		for _, lib := range neighborsOf(p) {
			if !boardgame.WithinBounds(lib, g.Board.Size) || g.Board.At(lib) != boardgame.Empty {
				continue
			}
			for _, n := range neighborsOf(lib) {
				if !boardgame.WithinBounds(n, g.Board.Size) || visitedGroups[n] || seed[n] {
					continue
				}
				if g.Board.At(n) != color {
					continue
				}
				group := boardgame.ConnectedGroup(n, g.Board.Stones, g.Board.Size)
				if len(group) <= 5 && boardgame.Liberties(g.Board, n) <= 2 {
					for gp := range group {
						g.DeadStones[gp] = true
						visitedGroups[gp] = true
					}
				}
			}
		}
	}
}

func neighborsOf(p boardgame.Position) [4]boardgame.Position {
	return [4]boardgame.Position{
		{X: p.X + 1, Y: p.Y}, {X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1}, {X: p.X, Y: p.Y - 1},
	}
}

// SyncDeadStones overwrites the dead-stone set wholesale from a client
// resync, rather than toggling incrementally.
func (e *Engine) SyncDeadStones(ctx context.Context, req protocol.SyncDeadStonesPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Scoring {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game is not in scoring")
		}
		dead := make(boardgame.PositionSet, len(req.DeadStones))
		for _, p := range req.DeadStones {
			dead[boardgame.Position{X: p.X, Y: p.Y}] = true
		}
		g.DeadStones = dead
		return []Event{groupEvent(protocol.EvtGameState, g)}, nil
	})
}

// CancelScoring returns the game to play, clearing any dead-stone
// marks made so far.
func (e *Engine) CancelScoring(ctx context.Context, req protocol.CancelScoringPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Scoring {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game is not in scoring")
		}
		g.Status = Playing
		g.DeadStones = nil
		g.Territory = nil
		return []Event{
			groupEvent(protocol.EvtScoringCanceled, nil),
			groupEvent(protocol.EvtGameState, g),
		}, nil
	})
}

// GameEnded confirms the agreed dead-stone set and finalizes the score.
func (e *Engine) GameEnded(ctx context.Context, req protocol.GameEndedPayload) ([]Event, error) {
	return e.dispatch(ctx, req.GameID, func(g *GameState) ([]Event, error) {
		if g.Status != Scoring {
			return nil, protocol.NewError(protocol.KindWrongPhase, "game is not in scoring")
		}
		score, territory := boardgame.ScoreGame(g.Board, g.DeadStones, capturedMap(g), g.Komi, g.ScoringRule)
		g.Score = &score
		g.Territory = territory
		g.Status = Finished
		g.Winner = score.Winner()
		g.HasWinner = true
		g.Result = scoreResult(score)
		return []Event{
			groupEvent(protocol.EvtGameFinished, g),
			groupEvent(protocol.EvtGameState, g),
		}, nil
	})
}

func scoreResult(s boardgame.Score) string {
	margin := s.Black - s.White
	if margin > 0 {
		return "B+" + formatMargin(margin)
	}
	if margin < 0 {
		return "W+" + formatMargin(-margin)
	}
	return "draw"
}

func formatMargin(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
