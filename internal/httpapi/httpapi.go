// HTTP boundary: health, metrics, and the WebSocket upgrade route
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

// Package httpapi is the generalization of the teacher's web package:
// where web/routes.go serves tournament-era HTML pages over
// html/template, this package serves the operational surface a
// realtime session server actually needs (liveness, metrics, and the
// WebSocket upgrade), kept deliberately small since the game itself
// is driven entirely over the socket protocol.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"weiqi-server/internal/metrics"
)

// Captcha is a hook a deployment can use to gate new connections (a
// bot-fighting mechanism tournament registration never needed but a
// public realtime server facing browsers usually does). The default
// always allows.
type Captcha func(r *http.Request) bool

func allowAll(*http.Request) bool { return true }

// Config bundles the options the HTTP boundary needs beyond the
// engine/hub it wraps.
type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Captcha        Captcha
}

// NewMux builds the top-level handler: liveness, metrics, and the
// upgrade endpoint behind a per-remote-address token bucket limiter,
// grounded on the golang.org/x/time/rate pattern the domain stack
// calls for.
func NewMux(upgrade http.HandlerFunc, cfg Config) http.Handler {
	if cfg.Captcha == nil {
		cfg.Captcha = allowAll
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}

	limiter := newPerAddrLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(r.RemoteAddr) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if !cfg.Captcha(r) {
			http.Error(w, "captcha check failed", http.StatusForbidden)
			return
		}
		upgrade(w, r)
	})
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	select {
	case <-ctx.Done():
	default:
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
