// WebSocket connection handling
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

// Package transport wires the session engine to live connections: a
// Conn per WebSocket, fanned out to a per-game Room, mirroring the
// teacher's client/handle split in proto/client.go but framed as JSON
// command/event envelopes over nhooyr.io/websocket instead of
// newline-terminated text.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	ws "nhooyr.io/websocket"

	"weiqi-server/internal/protocol"
)

// pingInterval mirrors the teacher's TCPTimeout keepalive, adapted to
// WebSocket ping frames instead of an application-level ping command.
const pingInterval = 30 * time.Second

// Conn wraps one live WebSocket, the direct analogue of the teacher's
// wsrwc plus the parts of client that own its lifecycle.
type Conn struct {
	id       string
	ws       *ws.Conn
	log      *slog.Logger
	gameID   string
	playerID string

	killed int32
	kill   context.CancelFunc
}

// NewConn adopts an accepted WebSocket connection.
func NewConn(id string, c *ws.Conn, log *slog.Logger) *Conn {
	return &Conn{id: id, ws: c, log: log}
}

// Bind associates this connection with a game and player, called once
// a joinGame/createGame command resolves them.
func (c *Conn) Bind(gameID, playerID string) {
	c.gameID = gameID
	c.playerID = playerID
}

func (c *Conn) GameID() string   { return c.gameID }
func (c *Conn) PlayerID() string { return c.playerID }

// Send writes one outbound event, silently dropping it if the
// connection has already been killed (mirrors cli.respond's "rwc ==
// nil" no-op).
func (c *Conn) Send(ctx context.Context, msg protocol.Outgoing) error {
	if atomic.LoadInt32(&c.killed) == 1 {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transport: encode event %s: %w", msg.Event, err)
	}
	return c.ws.Write(ctx, ws.MessageText, data)
}

// ReadLoop blocks decoding inbound command envelopes and invoking
// handle for each one until the connection closes or ctx is canceled.
// It mirrors the teacher's scanner-driven read goroutine in
// proto/client.go's handle method.
func (c *Conn) ReadLoop(ctx context.Context, handle func(protocol.Envelope)) {
	ctx, c.kill = context.WithCancel(ctx)
	defer c.close()

	go c.pinger(ctx)

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			c.log.Debug("transport: read loop ended", "conn", c.id, "error", err)
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("transport: malformed envelope", "conn", c.id, "error", err)
			continue
		}
		handle(env)
	}
}

// pinger keeps NAT/proxy-mediated connections alive, the WebSocket
// equivalent of the teacher's application-level ping/pong.
func (c *Conn) pinger(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				c.log.Debug("transport: ping failed, closing", "conn", c.id, "error", err)
				c.kill()
				return
			}
		}
	}
}

func (c *Conn) close() {
	if !atomic.CompareAndSwapInt32(&c.killed, 0, 1) {
		return
	}
	_ = c.ws.Close(ws.StatusNormalClosure, "goodbye")
}

// Close terminates the connection from outside the read loop.
func (c *Conn) Close() {
	if c.kill != nil {
		c.kill()
	} else {
		c.close()
	}
}
