// Per-game fan-out room and cross-instance relay
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
	"log/slog"
	"sync"
	"time"

	"weiqi-server/internal/protocol"
	"weiqi-server/internal/store"
)

// Room holds every local connection bound to one game and relays
// group events to them, plus a store-backed pub/sub bridge so
// connections on other instances receive the same events. This plays
// the role the teacher never needed (a single process served every
// client); it is grounded on RoseWrightdev-Video-Conferencing's Room
// abstraction, generalized from video participants to game seats.
type Room struct {
	gameID string
	store  store.Store
	log    *slog.Logger

	mu      sync.Mutex
	conns   map[string]*Conn // connection id -> Conn
	emptied time.Time
	hasZero bool

	sub    store.Subscription
	cancel context.CancelFunc
}

// NewRoom creates a Room and starts relaying the game's pub/sub topic
// to local connections, so events published by other instances still
// reach clients attached here.
func NewRoom(ctx context.Context, gameID string, st store.Store, log *slog.Logger) (*Room, error) {
	sub, err := st.Subscribe(ctx, store.Topic(gameID))
	if err != nil {
		return nil, err
	}
	rctx, cancel := context.WithCancel(ctx)
	r := &Room{gameID: gameID, store: st, log: log, conns: make(map[string]*Conn), sub: sub, cancel: cancel}
	go r.relayLoop(rctx)
	return r, nil
}

func (r *Room) relayLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-r.sub.Channel():
			if !ok {
				return
			}
			var msg protocol.Outgoing
			if err := json.Unmarshal(payload, &msg); err != nil {
				r.log.Warn("transport: malformed relayed event", "game", r.gameID, "error", err)
				continue
			}
			r.broadcastLocal(ctx, msg)
		}
	}
}

// Join registers a connection as a local member of the room.
func (r *Room) Join(c *Conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.hasZero = false
	r.mu.Unlock()
}

// Leave removes a connection. When the room reaches zero local
// connections it starts the disconnect-grace clock the sweeper in
// hub.go consults.
func (r *Room) Leave(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c.id)
	if len(r.conns) == 0 {
		r.hasZero = true
		r.emptied = time.Now()
	}
	r.mu.Unlock()
}

// EmptyFor reports how long the room has had zero local connections,
// or false if it currently has at least one.
func (r *Room) EmptyFor() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasZero {
		return 0, false
	}
	return time.Since(r.emptied), true
}

// Broadcast publishes msg to every instance's copy of this room (via
// the store) and also writes it directly to local connections,
// avoiding a local round-trip through the store for the common case.
func (r *Room) Broadcast(ctx context.Context, msg protocol.Outgoing) {
	r.broadcastLocal(ctx, msg)
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("transport: encode broadcast", "game", r.gameID, "error", err)
		return
	}
	if err := r.store.Publish(ctx, store.Topic(r.gameID), data); err != nil {
		r.log.Warn("transport: publish broadcast", "game", r.gameID, "error", err)
	}
}

func (r *Room) broadcastLocal(ctx context.Context, msg protocol.Outgoing) {
	r.mu.Lock()
	targets := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(ctx, msg); err != nil {
			r.log.Debug("transport: send failed", "game", r.gameID, "conn", c.id, "error", err)
		}
	}
}

// SendTo delivers msg only to the local connection(s) bound to
// playerID, the local-delivery half of Event{Audience: ToInitiator}.
// Initiator events are never relayed cross-instance: the command
// always executes and responds to the initiator from the instance
// that received the command over its own WebSocket.
func (r *Room) SendTo(ctx context.Context, playerID string, msg protocol.Outgoing) {
	r.mu.Lock()
	targets := make([]*Conn, 0, 1)
	for _, c := range r.conns {
		if c.PlayerID() == playerID {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()
	for _, c := range targets {
		if err := c.Send(ctx, msg); err != nil {
			r.log.Debug("transport: send-to failed", "game", r.gameID, "player", playerID, "error", err)
		}
	}
}

// Close tears down the pub/sub relay.
func (r *Room) Close() {
	r.cancel()
	_ = r.sub.Close()
}
