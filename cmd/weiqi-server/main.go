// Entry point
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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"weiqi-server/internal/app"
	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/config"
	"weiqi-server/internal/enginepool"
	"weiqi-server/internal/httpapi"
	"weiqi-server/internal/metrics"
	"weiqi-server/internal/session"
	"weiqi-server/internal/store"
	"weiqi-server/internal/transport"
)

func main() {
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Too many arguments passed to %s.\nUsage:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	conf := config.Load()
	log := slog.Default()

	st := buildStore(conf)

	var pool session.EnginePool
	if conf.EnginePool.Enabled {
		if conf.EnginePool.Sandboxed {
			dp, err := enginepool.NewDockerPool(conf.EnginePool.Image, conf.EnginePool.CPUQuota, conf.EnginePool.MemoryMB)
			if err != nil {
				log.Error("failed to start sandboxed engine pool, falling back to random", "error", err)
				pool = enginepool.NewRandomPool()
			} else {
				pool = dp
			}
		} else {
			pool = enginepool.NewRandomPool()
		}
	}

	engine := session.NewEngine(st, pool, session.Config{
		BoardSize:          conf.Game.BoardSize,
		ScoringRule:        boardgame.RuleSet(conf.Game.ScoringRule),
		Komi:               conf.Game.Komi,
		TimeControlMinutes: conf.Game.TimeControlMinutes,
		ByoYomiPeriods:     conf.Game.ByoYomiPeriods,
		ByoYomiTimeSeconds: conf.Game.ByoYomiTimeSeconds,
		TimePerMoveSeconds: conf.Game.TimePerMoveSeconds,
		CommandTimeout:     conf.Game.CommandTimeout,
		DisconnectGrace:    conf.Game.DisconnectGrace,
		SessionTTL:         conf.Game.SessionTTL,
	}, log)

	hub := transport.NewHub(engine, st, conf.Game.DisconnectGrace, log)
	engine.SetEventSink(hub.DeliverAsyncEvents)

	mux := httpapi.NewMux(hub.Upgrader(), httpapi.Config{
		RateLimitRPS:   conf.Web.RateLimitRPS,
		RateLimitBurst: conf.Web.RateLimitBurst,
	})

	state := app.New()
	state.Register(&httpServerManager{addr: fmt.Sprintf(":%d", conf.Web.Port), handler: mux, log: log})
	if conf.Web.MetricsAddr != "" {
		state.Register(&httpServerManager{addr: conf.Web.MetricsAddr, handler: metrics.Handler(), log: log})
	}
	state.Register(&roomSweeperManager{hub: hub})
	state.Register(&storeCloserManager{store: st})
	state.Start()
}

func buildStore(conf *config.Conf) store.Store {
	if conf.Store.UseMemory {
		return store.NewMemStore()
	}
	return store.NewRedisStore(conf.Store.RedisAddr, conf.Store.RedisPassword, conf.Store.RedisDB)
}

// httpServerManager adapts net/http.Server to the app.Manager
// interface, the same role the teacher's web package plays in
// cmd/state.go's manager set.
type httpServerManager struct {
	addr    string
	handler http.Handler
	log     *slog.Logger
	srv     *http.Server
}

func (m *httpServerManager) String() string { return "http[" + m.addr + "]" }

func (m *httpServerManager) Start(ctx context.Context) {
	m.srv = &http.Server{Addr: m.addr, Handler: m.handler}
	if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		m.log.Error("http server exited", "error", err)
	}
}

func (m *httpServerManager) Shutdown() {
	if m.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
}

// roomSweeperManager periodically evicts rooms/executors that have
// been empty past the disconnect grace period.
type roomSweeperManager struct {
	hub  *transport.Hub
	stop chan struct{}
}

func (m *roomSweeperManager) String() string { return "room-sweeper" }

func (m *roomSweeperManager) Start(ctx context.Context) {
	m.stop = make(chan struct{})
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.hub.SweepEmptyRooms()
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *roomSweeperManager) Shutdown() {
	if m.stop != nil {
		close(m.stop)
	}
}

// storeCloserManager exists purely to close the store connection on
// shutdown; it does no work while running.
type storeCloserManager struct {
	store store.Store
}

func (m *storeCloserManager) String() string { return "store" }

func (m *storeCloserManager) Start(ctx context.Context) {
	<-ctx.Done()
}

func (m *storeCloserManager) Shutdown() {
	_ = m.store.Close()
}
