// Prometheus instrumentation for the session server
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

// Package metrics exposes the process's Prometheus collectors. The
// teacher carries no metrics layer at all; this is an ambient
// component added because the domain stack (see SPEC_FULL.md §2) lists
// github.com/prometheus/client_golang among the libraries this system
// should exercise, and a live session server is exactly the kind of
// long-running service real deployments instrument this way.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveGames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "weiqi",
		Name:      "active_games",
		Help:      "Number of games with a locally-owned executor.",
	})

	ConnectedSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "weiqi",
		Name:      "connected_sockets",
		Help:      "Number of currently open WebSocket connections.",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weiqi",
		Name:      "commands_total",
		Help:      "Commands processed, by command name and outcome.",
	}, []string{"command", "outcome"})

	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weiqi",
		Name:      "command_duration_seconds",
		Help:      "Time spent executing a command end to end, including queueing.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command"})

	StoreRoundTrip = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weiqi",
		Name:      "store_roundtrip_seconds",
		Help:      "Latency of store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	GamesFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weiqi",
		Name:      "games_finished_total",
		Help:      "Games that reached the finished status, by result code.",
	}, []string{"result"})
)

// Handler returns the HTTP handler to mount at the configured metrics
// address.
func Handler() http.Handler {
	return promhttp.Handler()
}
