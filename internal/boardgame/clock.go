// Per-player time accounting: absolute time, byo-yomi, blitz
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

package boardgame

import "time"

// GameType selects which clock regime a game runs under.
type GameType string

const (
	EvenGame     GameType = "even"
	HandicapGame GameType = "handicap"
	BlitzGame    GameType = "blitz"
	TeachingGame GameType = "teaching"
	RengoGame    GameType = "rengo"
)

// TimeControl carries the configured durations for one game. Minutes and
// seconds follow spec's units exactly so wire payloads need no
// conversion.
type TimeControl struct {
	TimeControlMinutes int // main time budget, minutes; 0 means byo-yomi-only
	ByoYomiPeriods     int
	ByoYomiTimeSeconds int
	TimePerMoveSeconds int // blitz
	FischerSeconds     int
}

// ClockState is one player's mutable clock, the unit AccountMove reads
// and returns a new value of.
type ClockState struct {
	TimeRemaining      time.Duration
	ByoYomiPeriodsLeft int
	ByoYomiTimeLeft    time.Duration
	IsInByoYomi        bool
}

// MoveOutcome classifies what AccountMove decided happened to the
// clock during this move.
type MoveOutcome int

const (
	// Continue means the clock was updated and play continues.
	Continue MoveOutcome = iota
	// ByoYomiEntered means the player just used up main time and
	// dropped into their first byo-yomi period.
	ByoYomiEntered
	// ByoYomiReset means a move was completed inside byo-yomi, with
	// time left to spare; the period resets to the full byo-yomi
	// duration. Spec's ordering contract requires the caller to emit a
	// byoYomiReset notification before toggling turns.
	ByoYomiReset
	// ByoYomiPeriodUsed means the move overran the current byo-yomi
	// period, consuming one of the remaining periods.
	ByoYomiPeriodUsed
	// Timeout means the player's time (main and all byo-yomi periods)
	// is exhausted; the game ends in their loss.
	Timeout
)

// AccountMove applies spec §4.3's move-time accounting for one
// completed move or pass. delta is the non-negative elapsed think time
// since the turn started. It is a pure function: given the same inputs
// it always returns the same outputs, so it can be exercised without a
// running session, mirroring the way the teacher keeps Board.Sow free
// of I/O.
func AccountMove(state ClockState, delta time.Duration) (ClockState, MoveOutcome) {
	if delta < 0 {
		delta = 0
	}

	if !state.IsInByoYomi {
		remaining := state.TimeRemaining - delta
		if remaining > 0 {
			state.TimeRemaining = remaining
			return state, Continue
		}

		state.TimeRemaining = 0
		if state.ByoYomiPeriodsLeft > 0 {
			state.IsInByoYomi = true
			state.ByoYomiTimeLeft = time.Duration(0)
			return state, ByoYomiEntered
		}
		return state, Timeout
	}

	byoYomiFull := state.ByoYomiTimeLeft
	if delta <= byoYomiFull {
		// Reset: the period count is unchanged; the caller refills the
		// clock with ResetByoYomi.
		return state, ByoYomiReset
	}

	state.ByoYomiPeriodsLeft--
	if state.ByoYomiPeriodsLeft > 0 {
		return state, ByoYomiPeriodUsed
	}
	return state, Timeout
}

// ResetByoYomi sets a player's byo-yomi clock back to the full period
// duration, used by the session engine after ByoYomiEntered or
// ByoYomiReset/ByoYomiPeriodUsed outcomes.
func ResetByoYomi(state ClockState, full time.Duration) ClockState {
	state.ByoYomiTimeLeft = full
	return state
}

// AccountBlitzMove applies the simpler per-move budget used by blitz
// games: the mover's clock is fixed at timePerMove every turn, and
// overrunning it is an immediate timeout. It does not consult
// ClockState.IsInByoYomi at all.
func AccountBlitzMove(delta, timePerMove time.Duration) MoveOutcome {
	if delta > timePerMove {
		return Timeout
	}
	return Continue
}

// ProjectedRemaining computes a read-only projection of a player's
// remaining time for tick-driven display sync, without mutating any
// stored clock state. elapsed is the time since the mover's turn
// started; negative values are treated as zero. For a player not
// currently on the move, callers should pass their unmodified
// ClockState back unprojected.
func ProjectedRemaining(state ClockState, elapsed time.Duration) ClockState {
	if elapsed < 0 {
		elapsed = 0
	}
	if !state.IsInByoYomi {
		remaining := state.TimeRemaining - elapsed
		if remaining < 0 {
			remaining = 0
		}
		state.TimeRemaining = remaining
		return state
	}
	remaining := state.ByoYomiTimeLeft - elapsed
	if remaining < 0 {
		remaining = 0
	}
	state.ByoYomiTimeLeft = remaining
	return state
}
