// Error kind sentinel hierarchy
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

package protocol

import "fmt"

// ErrorKind is the wire-level discriminator for the error event's
// "kind" field (spec §7). Kinds are grouped by category; the category
// determines policy (recovered-locally vs. terminal-for-the-game vs.
// never-fatal) in the session engine, not in this package.
type ErrorKind string

const (
	// IllegalMove kinds: recovered locally, state unchanged.
	KindOccupied    ErrorKind = "Occupied"
	KindOutOfBounds ErrorKind = "OutOfBounds"
	KindKoViolation ErrorKind = "KoViolation"
	KindSuicide     ErrorKind = "Suicide"

	// Protocol kinds: recovered locally, state unchanged.
	KindNotYourTurn          ErrorKind = "NotYourTurn"
	KindWrongPhase           ErrorKind = "WrongPhase"
	KindUnknownGame          ErrorKind = "UnknownGame"
	KindInvalidCommand       ErrorKind = "InvalidCommand"
	KindUnauthorizedForColor ErrorKind = "UnauthorizedForColor"

	// Capacity kinds: recovered locally unless the client declined
	// spectator demotion.
	KindGameFull ErrorKind = "GameFull"

	// Timing kinds: terminal for the game.
	KindMoveDeadlineExceeded ErrorKind = "MoveDeadlineExceeded"
	KindTimeout              ErrorKind = "Timeout"

	// Store kinds: never fatal for the process.
	KindStoreError ErrorKind = "StoreError"
)

// CommandError is the typed error the session engine returns for a
// rejected command. It carries enough to build the wire ErrorPayload
// without the session package importing this package's wire types
// back and forth.
type CommandError struct {
	Kind    ErrorKind
	Message string
	Details string
}

func (e *CommandError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError constructs a CommandError for the given kind with a
// human-readable message.
func NewError(kind ErrorKind, message string) *CommandError {
	return &CommandError{Kind: kind, Message: message}
}

// IsTerminal reports whether an error kind ends the game rather than
// being recovered locally (spec §7 policy table).
func (k ErrorKind) IsTerminal() bool {
	return k == KindMoveDeadlineExceeded || k == KindTimeout
}

// ToPayload converts a CommandError into the wire ErrorPayload shape.
func (e *CommandError) ToPayload() ErrorPayload {
	return ErrorPayload{
		Kind:    string(e.Kind),
		Message: e.Message,
		Details: e.Details,
	}
}
