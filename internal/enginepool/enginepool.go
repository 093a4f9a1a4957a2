// AI move-generation collaborator pool
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

// Package enginepool supplies move-generation collaborators an AI seat
// can request moves from, implementing the session.EnginePool
// interface. The teacher's analogue is its TCP-connected agent
// protocol in proto/proto.go's "mode" negotiation, where a remote
// process supplies moves over the wire; here the same idea of an
// external move source is kept, but it is sandboxed per request with
// a container rather than held open as a persistent socket, the way
// the (now superseded) scheduler isolation layer in this repository's
// history ran untrusted agent binaries.
package enginepool

import (
	"context"
	"math/rand"
	"time"

	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/session"
)

// RandomPool is the reference, in-process EnginePool: it plays a
// uniformly random legal move, or passes if none is found within its
// attempt budget. The server uses it when the engine pool is enabled
// but not sandboxed, and as the fallback when the sandboxed pool cannot
// start.
type RandomPool struct {
	MaxAttempts int
}

// NewRandomPool constructs a RandomPool with a sane default attempt
// budget.
func NewRandomPool() *RandomPool {
	return &RandomPool{MaxAttempts: 64}
}

// RequestMove implements session.EnginePool.
func (p *RandomPool) RequestMove(ctx context.Context, g *session.GameState, color boardgame.Color) (x, y int, pass bool, err error) {
	size := g.Board.Size
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 64
	}
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return 0, 0, true, ctx.Err()
		default:
		}
		cx, cy := rand.Intn(size), rand.Intn(size)
		pos := boardgame.Position{X: cx, Y: cy}
		if g.Board.At(pos) != boardgame.Empty {
			continue
		}
		if g.HasKo && pos == g.KoPosition {
			continue
		}
		if _, failure := boardgame.ApplyMove(g.Board, pos, g.KoPosition, g.HasKo, color); failure == boardgame.NoFailure {
			return cx, cy, false, nil
		}
	}
	return 0, 0, true, nil
}

var _ session.EnginePool = (*RandomPool)(nil)

// WarmupTimeout bounds how long a sandboxed pool implementation may
// take to become ready for its first request, mirroring the
// container-warmup deadline the teacher's isolation layer enforced
// before handing a game to a freshly started agent process.
const WarmupTimeout = 10 * time.Second
