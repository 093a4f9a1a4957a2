// Configuration specification and defaults
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

// Package config loads and dumps the server's TOML configuration, in
// the same shape the teacher's conf package uses: a nested internal
// struct decoded straight off disk, flag overrides applied in init, and
// a -dump-config mode for round-tripping the active configuration back
// to TOML.
package config

import (
	"flag"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

const defaultConfFile = "weiqi-server.toml"

// ProtoConf holds command-protocol channel settings. The server reads
// none of them: the channel is served at /ws on WebConf.Port, and its
// ping interval is fixed in internal/transport.
type ProtoConf struct {
	Port      uint          `toml:"port"`
	Ping      bool          `toml:"ping"`
	Timeout   time.Duration `toml:"timeout"`
	ChannelPath string      `toml:"channel_path"`
}

// GameConf carries default board/time-control/scoring settings applied
// to a createGame call that does not override them.
type GameConf struct {
	BoardSize          int     `toml:"board_size"`
	ScoringRule        string  `toml:"scoring_rule"`
	Komi               float64 `toml:"komi"`
	TimeControlMinutes int     `toml:"time_control_minutes"`
	ByoYomiPeriods     int     `toml:"byo_yomi_periods"`
	ByoYomiTimeSeconds int     `toml:"byo_yomi_time_seconds"`
	TimePerMoveSeconds int     `toml:"time_per_move_seconds"`
	CommandTimeout     time.Duration `toml:"command_timeout"`
	DisconnectGrace    time.Duration `toml:"disconnect_grace"`
	SessionTTL         time.Duration `toml:"session_ttl"`
}

// StoreConf configures the shared session store.
type StoreConf struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	UseMemory     bool   `toml:"use_memory"` // dev/test fallback, no Redis dependency
}

// WebConf configures the HTTP boundary.
type WebConf struct {
	Enabled        bool    `toml:"enabled"`
	Port           uint    `toml:"port"`
	MetricsAddr    string  `toml:"metrics_addr"`
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
}

// EnginePoolConf configures the AI move-generation collaborator.
type EnginePoolConf struct {
	Enabled    bool     `toml:"enabled"`
	Sandboxed  bool     `toml:"sandboxed"`
	Image      string   `toml:"image"`
	WarmupTime time.Duration `toml:"warmup_time"`
	CPUQuota   int64    `toml:"cpu_quota"`
	MemoryMB   int64    `toml:"memory_mb"`
}

// Conf is the internal representation decoded directly from TOML.
type Conf struct {
	Debug       bool           `toml:"debug"`
	Proto       ProtoConf      `toml:"proto"`
	Game        GameConf       `toml:"game"`
	Store       StoreConf      `toml:"store"`
	Web         WebConf        `toml:"web"`
	EnginePool  EnginePoolConf `toml:"engine_pool"`
}

// defaultConf is the configuration used when no file is present, and
// the baseline flag.init overrides apply to.
var defaultConf = Conf{
	Proto: ProtoConf{
		Port:        8080,
		Ping:        true,
		Timeout:     time.Second * 20,
		ChannelPath: "/ws",
	},
	Game: GameConf{
		BoardSize:          19,
		ScoringRule:        "japanese",
		Komi:               6.5,
		TimeControlMinutes: 30,
		ByoYomiPeriods:     5,
		ByoYomiTimeSeconds: 30,
		TimePerMoveSeconds: 10,
		CommandTimeout:     5 * time.Second,
		DisconnectGrace:    5 * time.Minute,
		SessionTTL:         24 * time.Hour,
	},
	Store: StoreConf{
		RedisAddr: "localhost:6379",
		UseMemory: false,
	},
	Web: WebConf{
		Enabled:        true,
		Port:           8080,
		MetricsAddr:    ":9090",
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	},
	EnginePool: EnginePoolConf{
		Enabled:    false,
		Sandboxed:  false,
		WarmupTime: 10 * time.Second,
		CPUQuota:   int64(runtime.NumCPU()),
		MemoryMB:   256,
	},
}

var (
	debug  = false
	dump   = false
	cfile  = defaultConfFile
)

func init() {
	flag.UintVar(&defaultConf.Web.Port, "port", defaultConf.Web.Port,
		"Port to bind the command-protocol channel and HTTP boundary on")
	flag.StringVar(&defaultConf.Store.RedisAddr, "redis-addr", defaultConf.Store.RedisAddr,
		"Address of the shared Redis-backed session store")
	flag.BoolVar(&defaultConf.Store.UseMemory, "memstore", defaultConf.Store.UseMemory,
		"Use the in-process memory store instead of Redis (dev/test only)")
	flag.StringVar(&defaultConf.Web.MetricsAddr, "metrics-addr", defaultConf.Web.MetricsAddr,
		"Address to serve Prometheus metrics on")
	flag.BoolVar(&debug, "debug", debug, "Enable debug output")
	flag.BoolVar(&dump, "dump-config", dump, "Dump configuration to standard output")
	flag.StringVar(&cfile, "conf", cfile, "Path to configuration file")
}

// Debug is the package-level debug logger, discarded unless -debug is
// passed, mirroring the teacher's kgp.Debug pattern.
var Debug = log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds)

// Load reads the configuration file named by -conf, falling back to
// defaultConf if the default file is absent or fails to decode (a
// missing file named explicitly by -conf is fatal). It applies environment variable
// overrides (§6) after the file, so deployment environments never need
// a config file at all.
func Load() *Conf {
	c := defaultConf

	file, err := os.Open(cfile)
	switch {
	case err == nil:
		defer file.Close()
		if _, decErr := toml.NewDecoder(file).Decode(&c); decErr != nil {
			log.Printf("config: failed to decode %s: %v, using defaults", cfile, decErr)
			c = defaultConf
		}
	case os.IsNotExist(err) && cfile == defaultConfFile:
		// No file and no -conf override: silently use defaults.
	default:
		log.Fatalf("config: %v", err)
	}

	applyEnv(&c)

	if debug {
		Debug.SetOutput(os.Stderr)
		Debug.Println("debug logging enabled")
	}

	if dump {
		if err := c.Dump(os.Stdout); err != nil {
			log.Fatalf("config: failed to dump configuration: %v", err)
		}
		os.Exit(0)
	}

	return &c
}

// Dump serializes c back to TOML, the same round-trip the teacher's
// Conf.Dump provides for -dump-config.
func (c *Conf) Dump(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
