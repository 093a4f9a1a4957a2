// Event emission plumbing
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

package session

import "weiqi-server/internal/protocol"

// Audience selects who on the fan-out layer receives an Event.
type Audience int

const (
	// ToGroup delivers to every channel bound to the game, local and
	// remote (via the store's pub/sub side).
	ToGroup Audience = iota
	// ToInitiator delivers only to the player that issued the command,
	// used for error responses and per-command sync acknowledgements.
	ToInitiator
)

// Event is one outbound message the executor produced while processing
// a command. The session engine never talks to a connection directly;
// it only ever returns a totally ordered slice of these, which the
// transport layer (internal/transport) is responsible for fanning out
// in order, exactly the separation spec §5's ordering guarantee
// depends on.
type Event struct {
	Audience Audience
	PlayerID string // only meaningful when Audience == ToInitiator
	Message  protocol.Outgoing
}

func groupEvent(name string, payload interface{}) Event {
	return Event{Audience: ToGroup, Message: protocol.Outgoing{Event: name, Payload: payload}}
}

func initiatorEvent(playerID, name string, payload interface{}) Event {
	return Event{Audience: ToInitiator, PlayerID: playerID, Message: protocol.Outgoing{Event: name, Payload: payload}}
}
