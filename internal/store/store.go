// Session store abstraction
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

// Package store abstracts the shared key-value/pub-sub backing store
// the session engine uses for cross-instance coordination: per-game
// state, the code→id and socket→id indexes, and topic fan-out. A Redis
// implementation (grounded on go-redis/v9, the way
// Byabasaija-playpool's idle worker and RoseWrightdev's BusService use
// the same client) backs production; an in-memory implementation backs
// local development and tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get* methods when the key does not exist.
// It is not itself a StoreError: a miss is a normal outcome the caller
// maps to "none" per spec §4.4, never logged as a failure.
var ErrNotFound = errors.New("store: not found")

// Subscription is a live handle on a topic subscription.
type Subscription interface {
	// Channel streams payloads published to the topic.
	Channel() <-chan []byte
	Close() error
}

// Store is the abstract interface the session engine and transport
// layer consume. Read errors are reported distinctly from ErrNotFound
// so callers can tell "not present" from "store is unhealthy".
type Store interface {
	GetGame(ctx context.Context, id string) ([]byte, error)
	SetGame(ctx context.Context, id string, data []byte, ttl time.Duration) error
	DelGame(ctx context.Context, id string) error

	GetSessionByCode(ctx context.Context, code string) (string, error)
	SetSessionCode(ctx context.Context, code, id string, ttl time.Duration) error
	DelSessionCode(ctx context.Context, code string) error

	GetSocketGame(ctx context.Context, socketID string) (string, error)
	SetSocketGame(ctx context.Context, socketID, gameID string, ttl time.Duration) error
	DelSocketGame(ctx context.Context, socketID string) error

	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	Close() error
}

// Key helpers, centralizing the key layout named in spec §5/§6 so the
// Redis and memory implementations never disagree on it.
func gameKey(id string) string      { return "game:" + id }
func codeKey(code string) string    { return "code:" + code }
func socketKey(sid string) string   { return "socket:" + sid }
func topicKey(gameID string) string { return "game:" + gameID }

// Topic returns the pub/sub topic name for a game id, exported so the
// transport layer can subscribe without duplicating the naming scheme.
func Topic(gameID string) string { return topicKey(gameID) }
