// Manager lifecycle registry
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

// Package app is the direct generalization of the teacher's cmd
// package State/Manager registry: components register themselves,
// Start launches each in its own goroutine and blocks for an
// interrupt or context cancellation, then shuts every manager down in
// reverse registration order with a forced-exit race if shutdown
// hangs.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
)

// Manager is anything with an independent start/stop lifecycle: the
// store connection, the HTTP and metrics servers, the room-eviction
// sweeper.
type Manager interface {
	fmt.Stringer
	Start(ctx context.Context)
	Shutdown()
}

// State is the root object main() builds up by registering every
// Manager before calling Start.
type State struct {
	Context context.Context
	Kill    context.CancelFunc
	Running bool

	Managers []Manager
}

// New constructs an empty State.
func New() *State {
	ctx, kill := context.WithCancel(context.Background())
	return &State{Context: ctx, Kill: kill}
}

// Register adds m to the set of managers Start will launch. It panics
// if called after Start, the same late-registration guard the teacher
// enforces.
func (s *State) Register(m Manager) {
	if s.Running {
		panic(fmt.Sprintf("app: late register: %#v", m))
	}
	s.Managers = append(s.Managers, m)
}

// Start launches every registered manager, then blocks until an
// os.Interrupt or the State's own context is canceled, at which point
// it shuts managers down in reverse order, racing a second interrupt
// to force an immediate exit.
func (s *State) Start() {
	for _, m := range s.Managers {
		log.Printf("app: starting %s", m)
		go m.Start(s.Context)
	}
	s.Running = true

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	select {
	case <-intr:
		log.Println("app: caught interrupt")
	case <-s.Context.Done():
		log.Println("app: requested shutdown")
	}

	done := make(chan struct{})
	go func() {
		for i := len(s.Managers) - 1; i >= 0; i-- {
			m := s.Managers[i]
			log.Printf("app: shutting %s down", m)
			m.Shutdown()
		}
		close(done)
	}()

	select {
	case <-intr:
		log.Println("app: forced shutdown")
	case <-done:
		log.Println("app: shut down regularly")
	}
}
