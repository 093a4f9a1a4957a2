// Per-remote-address rate limiting
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

package httpapi

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// perAddrLimiter keeps one token bucket per remote address, evicting
// buckets that have gone idle so the map does not grow without bound
// across the lifetime of a long-running process.
type perAddrLimiter struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	r        rate.Limit
	burst    int
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newPerAddrLimiter(r rate.Limit, burst int) *perAddrLimiter {
	l := &perAddrLimiter{limiters: make(map[string]*bucket), r: r, burst: burst}
	go l.evictLoop()
	return l
}

func (l *perAddrLimiter) Allow(remoteAddr string) bool {
	key := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		key = host
	}

	l.mu.Lock()
	b, ok := l.limiters[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.r, l.burst)}
		l.limiters[key] = b
	}
	b.seen = time.Now()
	limiter := b.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

func (l *perAddrLimiter) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		l.mu.Lock()
		for k, b := range l.limiters {
			if b.seen.Before(cutoff) {
				delete(l.limiters, k)
			}
		}
		l.mu.Unlock()
	}
}
