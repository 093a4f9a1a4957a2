// Command dispatch, room registry, and the HTTP upgrade endpoint
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

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ws "nhooyr.io/websocket"

	"weiqi-server/internal/metrics"
	"weiqi-server/internal/protocol"
	"weiqi-server/internal/session"
	"weiqi-server/internal/store"
)

// Hub is the connection & fan-out layer of spec §4.6: it owns the
// WebSocket upgrade endpoint, the registry of per-game Rooms, and the
// translation between protocol.Envelope commands and session.Engine
// calls. It is the part of the system the teacher has no analogue
// for at all (go-kgp serves one connection-bound game at a time), so
// its shape is grounded instead on RoseWrightdev-Video-Conferencing's
// hub/room split, adapted from video participants to board-game seats.
type Hub struct {
	engine *session.Engine
	store  store.Store
	log    *slog.Logger

	disconnectGrace time.Duration

	mu    sync.Mutex
	rooms map[string]*Room

	connSeq uint64
}

// NewHub constructs a Hub bound to a session engine and store.
func NewHub(engine *session.Engine, st store.Store, disconnectGrace time.Duration, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{engine: engine, store: st, disconnectGrace: disconnectGrace, log: log, rooms: make(map[string]*Room)}
}

func (h *Hub) roomFor(ctx context.Context, gameID string) (*Room, error) {
	h.mu.Lock()
	if r, ok := h.rooms[gameID]; ok {
		h.mu.Unlock()
		return r, nil
	}
	h.mu.Unlock()

	r, err := NewRoom(ctx, gameID, h.store, h.log)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if existing, ok := h.rooms[gameID]; ok {
		h.mu.Unlock()
		r.Close()
		return existing, nil
	}
	h.rooms[gameID] = r
	h.mu.Unlock()
	return r, nil
}

// Upgrader returns the http.HandlerFunc that accepts a WebSocket and
// hands it to Serve, the direct generalization of the teacher's
// web/ws.go upgrader function.
func (h *Hub) Upgrader() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			h.log.Debug("transport: unable to upgrade connection", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		id := fmt.Sprintf("c%d", atomic.AddUint64(&h.connSeq, 1))
		h.log.Info("transport: new connection", "conn", id, "remote", r.RemoteAddr)
		c := NewConn(id, conn, h.log)
		go h.serve(r.Context(), c)
	}
}

func (h *Hub) serve(ctx context.Context, c *Conn) {
	c.ReadLoop(ctx, func(env protocol.Envelope) {
		h.handleCommand(ctx, c, env)
	})
	if c.gameID != "" {
		if r, ok := h.lookupRoom(c.gameID); ok {
			// Use a fresh context: the request context behind ctx is on
			// its way to cancellation along with the socket that just
			// closed, and the disconnect notice still needs to reach the
			// rest of the group (and, for a relayed broadcast, the store).
			r.Broadcast(context.Background(), protocol.Outgoing{
				Event:   protocol.EvtPlayerDisconnected,
				Payload: map[string]string{"playerId": c.PlayerID()},
			})
			r.Leave(c)
		}
	}
}

func (h *Hub) lookupRoom(gameID string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[gameID]
	return r, ok
}

// handleCommand decodes one inbound envelope, calls the matching
// Engine method, and fans the returned events out through the game's
// Room, preserving the ordering the engine already established.
func (h *Hub) handleCommand(ctx context.Context, c *Conn, env protocol.Envelope) {
	var (
		events []session.Event
		err    error
		gameID string
	)

	timer := prometheus.NewTimer(metrics.CommandDuration.WithLabelValues(env.Command))
	defer timer.ObserveDuration()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.CommandsTotal.WithLabelValues(env.Command, outcome).Inc()
	}()

	switch env.Command {
	case protocol.CmdCreateGame:
		var req protocol.CreateGamePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			var g *session.GameState
			g, events, err = h.engine.CreateGame(ctx, req)
			if g != nil {
				gameID = g.ID
				c.Bind(gameID, req.PlayerID)
			}
		}
	case protocol.CmdJoinGame:
		var req protocol.JoinGamePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			var g *session.GameState
			g, events, err = h.engine.JoinGame(ctx, req)
			if g != nil {
				gameID = g.ID
				c.Bind(gameID, req.PlayerID)
			} else {
				gameID = req.GameID
			}
		}
	case protocol.CmdMakeMove:
		var req protocol.MakeMovePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.MakeMove(ctx, req)
		}
	case protocol.CmdPassTurn:
		var req protocol.PassTurnPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.PassTurn(ctx, req)
		}
	case protocol.CmdResignGame:
		var req protocol.ResignGamePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.Resign(ctx, req)
		}
	case protocol.CmdToggleDeadStone:
		var req protocol.ToggleDeadStonePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.ToggleDeadStone(ctx, req)
		}
	case protocol.CmdSyncDeadStones:
		var req protocol.SyncDeadStonesPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.SyncDeadStones(ctx, req)
		}
	case protocol.CmdCancelScoring:
		var req protocol.CancelScoringPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.CancelScoring(ctx, req)
		}
	case protocol.CmdGameEnded:
		var req protocol.GameEndedPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.GameEnded(ctx, req)
		}
	case protocol.CmdRequestUndo:
		var req protocol.RequestUndoPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.RequestUndo(ctx, req)
		}
	case protocol.CmdRespondToUndoRequest:
		var req protocol.RespondToUndoRequestPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.RespondToUndoRequest(ctx, req)
		}
	case protocol.CmdChatMessage:
		var req protocol.ChatMessagePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.ChatMessage(ctx, req)
		}
	case protocol.CmdRequestSync:
		var req protocol.RequestSyncPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.RequestSync(ctx, req)
		}
	case protocol.CmdTimerTick:
		var req protocol.TimerTickPayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.TimerTick(ctx, req)
		}
	case protocol.CmdLeaveGame:
		var req protocol.LeaveGamePayload
		if err = json.Unmarshal(env.Payload, &req); err == nil {
			gameID = req.GameID
			events, err = h.engine.LeaveGame(ctx, req)
		}
	default:
		err = protocol.NewError(protocol.KindInvalidCommand, "unknown command: "+env.Command)
	}

	if gameID != "" && c.GameID() == "" {
		c.Bind(gameID, c.PlayerID())
	}
	if gameID == "" {
		gameID = c.GameID()
	}

	if err != nil {
		h.deliverError(ctx, c, err)
		return
	}
	if gameID == "" {
		return
	}

	room, rerr := h.roomFor(ctx, gameID)
	if rerr != nil {
		h.log.Error("transport: failed to attach room", "game", gameID, "error", rerr)
		return
	}
	room.Join(c)
	h.deliverEvents(ctx, room, c, events)
}

// DeliverAsyncEvents fans out events the engine produced off the
// request path, such as an AI collaborator's move, the same way
// handleCommand delivers events for a client-issued command. It is
// wired in as the session.Engine's event sink from cmd/weiqi-server's
// main, since internal/session cannot import internal/transport
// without a cycle.
func (h *Hub) DeliverAsyncEvents(gameID string, events []session.Event) {
	if len(events) == 0 {
		return
	}
	ctx := context.Background()
	room, err := h.roomFor(ctx, gameID)
	if err != nil {
		h.log.Error("transport: failed to attach room for async events", "game", gameID, "error", err)
		return
	}
	h.deliverEvents(ctx, room, nil, events)
}

func (h *Hub) deliverEvents(ctx context.Context, room *Room, origin *Conn, events []session.Event) {
	for _, ev := range events {
		if g, ok := ev.Message.Payload.(*session.GameState); ok && ev.Message.Event == protocol.EvtGameFinished && g.Result != "" {
			metrics.GamesFinishedTotal.WithLabelValues(g.Result).Inc()
		}
		switch ev.Audience {
		case session.ToGroup:
			room.Broadcast(ctx, ev.Message)
		case session.ToInitiator:
			room.SendTo(ctx, ev.PlayerID, ev.Message)
		}
	}
}

func (h *Hub) deliverError(ctx context.Context, c *Conn, err error) {
	var payload protocol.ErrorPayload
	if ce, ok := err.(*protocol.CommandError); ok {
		payload = ce.ToPayload()
	} else {
		payload = protocol.ErrorPayload{Kind: string(protocol.KindInvalidCommand), Message: err.Error()}
	}
	_ = c.Send(ctx, protocol.Outgoing{Event: protocol.EvtError, Payload: payload})
}

// SweepEmptyRooms evicts the local executor (via the engine) and local
// Room for any game that has had zero local connections for longer
// than the configured disconnect grace period. It is driven by a
// ticker started from cmd/weiqi-server/main.go, the local analogue of
// the teacher's game-timeout handling in game/game.go.
func (h *Hub) SweepEmptyRooms() {
	h.mu.Lock()
	candidates := make(map[string]*Room, len(h.rooms))
	for id, r := range h.rooms {
		candidates[id] = r
	}
	h.mu.Unlock()

	for id, r := range candidates {
		dur, empty := r.EmptyFor()
		if !empty || dur < h.disconnectGrace {
			continue
		}
		h.mu.Lock()
		delete(h.rooms, id)
		h.mu.Unlock()
		r.Close()
		h.engine.Evict(id)
	}
}
