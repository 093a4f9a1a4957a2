// Redis-backed Store implementation
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

package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a single go-redis client,
// following the same pattern Byabasaija-playpool's idle worker uses for
// sorted-set keys and RoseWrightdev-Video-Conferencing's BusService
// uses for Publish/Subscribe: the rest of the codebase never imports
// go-redis directly, only this package does.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials addr (host:port) with the given password/db index.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *RedisStore) GetGame(ctx context.Context, id string) ([]byte, error) {
	return s.get(ctx, gameKey(id))
}

func (s *RedisStore) SetGame(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, gameKey(id), data, ttl).Err()
}

func (s *RedisStore) DelGame(ctx context.Context, id string) error {
	return s.client.Del(ctx, gameKey(id)).Err()
}

func (s *RedisStore) GetSessionByCode(ctx context.Context, code string) (string, error) {
	v, err := s.get(ctx, codeKey(code))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *RedisStore) SetSessionCode(ctx context.Context, code, id string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKey(code), id, ttl).Err()
}

func (s *RedisStore) DelSessionCode(ctx context.Context, code string) error {
	return s.client.Del(ctx, codeKey(code)).Err()
}

func (s *RedisStore) GetSocketGame(ctx context.Context, socketID string) (string, error) {
	v, err := s.get(ctx, socketKey(socketID))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *RedisStore) SetSocketGame(ctx context.Context, socketID, gameID string, ttl time.Duration) error {
	return s.client.Set(ctx, socketKey(socketID), gameID, ttl).Err()
}

func (s *RedisStore) DelSocketGame(ctx context.Context, socketID string) error {
	return s.client.Del(ctx, socketKey(socketID)).Err()
}

func (s *RedisStore) Publish(ctx context.Context, topic string, payload []byte) error {
	return s.client.Publish(ctx, topic, payload).Err()
}

func (s *RedisStore) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := s.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- []byte(msg.Payload)
		}
	}()

	return &redisSubscription{pubsub: pubsub, ch: out}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan []byte
}

func (s *redisSubscription) Channel() <-chan []byte { return s.ch }
func (s *redisSubscription) Close() error           { return s.pubsub.Close() }

var _ Store = (*RedisStore)(nil)
