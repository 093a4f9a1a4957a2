// Command protocol surface: wire command and event payload schemas
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

// Package protocol defines the JSON command/event wire schema exchanged
// over the bidirectional channel. It is the JSON-framed generalization
// of the teacher's proto.go: the teacher tokenizes a whitespace command
// line and dispatches by name in interpret(); this package dispatches
// by a "command" discriminator field the same way, but payloads are
// typed Go structs decoded straight from JSON instead of positional
// text arguments.
package protocol

import "encoding/json"

// Envelope is the shape of every inbound client message: a command
// name and its raw, not-yet-typed payload.
type Envelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outgoing is the shape of every outbound server message: an event
// name and its payload, serialized as an object with "event" set to the
// discriminator and the event data under "payload", mirroring the
// Envelope shape but for events.
type Outgoing struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Command names, exactly as named in spec §6.
const (
	CmdCreateGame           = "createGame"
	CmdJoinGame             = "joinGame"
	CmdMakeMove             = "makeMove"
	CmdPassTurn             = "passTurn"
	CmdResignGame           = "resignGame"
	CmdToggleDeadStone      = "toggleDeadStone"
	CmdSyncDeadStones       = "syncDeadStones"
	CmdCancelScoring        = "cancelScoring"
	CmdGameEnded            = "gameEnded"
	CmdRequestUndo          = "requestUndo"
	CmdRespondToUndoRequest = "respondToUndoRequest"
	CmdChatMessage          = "chatMessage"
	CmdRequestSync          = "requestSync"
	CmdTimerTick            = "timerTick"
	CmdLeaveGame            = "leaveGame"
)

// Event names, exactly as named in spec §6.
const (
	EvtGameState           = "gameState"
	EvtMoveMade             = "moveMade"
	EvtTimeUpdate           = "timeUpdate"
	EvtByoYomiStarted       = "byoYomiStarted"
	EvtByoYomiPeriodUsed    = "byoYomiPeriodUsed"
	EvtByoYomiReset         = "byoYomiReset"
	EvtPlayerTimeout        = "playerTimeout"
	EvtPlayerJoined         = "playerJoined"
	EvtPlayerLeft           = "playerLeft"
	EvtPlayerDisconnected   = "playerDisconnected"
	EvtPlayerResigned       = "playerResigned"
	EvtScoringPhaseStarted  = "scoringPhaseStarted"
	EvtDeadStoneToggled     = "deadStoneToggled"
	EvtScoringCanceled      = "scoringCanceled"
	EvtGameFinished         = "gameFinished"
	EvtChatMessage          = "chatMessage"
	EvtError                = "error"
	EvtGameCreated          = "gameCreated"
	EvtJoinedGame           = "joinedGame"
	EvtSyncGameState        = "syncGameState"
)

// Position mirrors boardgame.Position on the wire, kept as its own
// type so this package never imports internal/boardgame and stays a
// pure schema definition.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// --- Command payloads -------------------------------------------------

type CreateGamePayload struct {
	PlayerID          string  `json:"playerId"`
	Username          string  `json:"username"`
	ColorPreference   string  `json:"colorPreference,omitempty"`
	BoardSize         int     `json:"boardSize,omitempty"`
	GameType          string  `json:"gameType,omitempty"`
	Handicap          int     `json:"handicap,omitempty"`
	Komi              float64 `json:"komi,omitempty"`
	ScoringRule       string  `json:"scoringRule,omitempty"`
	TimeControlMin    int     `json:"timeControl,omitempty"`
	ByoYomiPeriods    int     `json:"byoYomiPeriods,omitempty"`
	ByoYomiTimeSec    int     `json:"byoYomiTime,omitempty"`
	TimePerMoveSec    int     `json:"timePerMove,omitempty"`
	// IsAI seats an AI collaborator in the initiator's own chair instead
	// of a human; the engine pool supplies its moves. The game still
	// waits for a second player to join before play starts.
	IsAI              bool    `json:"isAI,omitempty"`
}

type JoinGamePayload struct {
	GameID       string `json:"gameId,omitempty"`
	Code         string `json:"code,omitempty"`
	PlayerID     string `json:"playerId"`
	Username     string `json:"username"`
	AsSpectator  bool   `json:"asSpectator,omitempty"`
	IsReconnect  bool   `json:"isReconnect,omitempty"`
	// IsAI fills the open seat with an AI collaborator rather than the
	// joining connection's own player, the same seat-filling path a
	// second human takes.
	IsAI         bool   `json:"isAI,omitempty"`
}

type MakeMovePayload struct {
	GameID   string   `json:"gameId"`
	Position Position `json:"position"`
	Color    string   `json:"color"`
	PlayerID string   `json:"playerId"`
}

type PassTurnPayload struct {
	GameID   string `json:"gameId"`
	Color    string `json:"color"`
	PlayerID string `json:"playerId"`
	EndGame  bool   `json:"endGame,omitempty"`
}

type ResignGamePayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
}

type ToggleDeadStonePayload struct {
	GameID   string   `json:"gameId"`
	Position Position `json:"position"`
	PlayerID string   `json:"playerId"`
}

type SyncDeadStonesPayload struct {
	GameID          string     `json:"gameId"`
	PlayerID        string     `json:"playerId"`
	DeadStones      []Position `json:"deadStones"`
	DeadBlackStones int        `json:"deadBlackStones"`
	DeadWhiteStones int        `json:"deadWhiteStones"`
}

type CancelScoringPayload struct {
	GameID string `json:"gameId"`
}

type GameEndedPayload struct {
	GameID string `json:"gameId"`
}

type RequestUndoPayload struct {
	GameID     string `json:"gameId"`
	PlayerID   string `json:"playerId"`
	MoveIndex  int    `json:"moveIndex"`
}

type RespondToUndoRequestPayload struct {
	GameID    string `json:"gameId"`
	PlayerID  string `json:"playerId"`
	Accepted  bool   `json:"accepted"`
	MoveIndex int    `json:"moveIndex"`
}

type ChatMessagePayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type RequestSyncPayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type TimerTickPayload struct {
	GameID string `json:"gameId"`
}

type LeaveGamePayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// --- Event payloads -----------------------------------------------------

type JoinedGamePayload struct {
	Success     bool   `json:"success"`
	GameID      string `json:"gameId"`
	PlayerID    string `json:"playerId"`
	NumPlayers  int    `json:"numPlayers"`
	Status      string `json:"status"`
	CurrentTurn string `json:"currentTurn"`
}

type ChatEventPayload struct {
	ID        string `json:"id"`
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
