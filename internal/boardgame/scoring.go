// Territory and final-score computation
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

// RuleSet names one of the five supported scoring conventions.
type RuleSet string

const (
	Chinese  RuleSet = "chinese"
	Japanese RuleSet = "japanese"
	Korean   RuleSet = "korean"
	AGA      RuleSet = "aga"
	Ing      RuleSet = "ing"
)

// IngKomi is the Ing Society's conventional komi, applied by convention
// regardless of what komi value a game record otherwise carries.
const IngKomi = 8.0

// Score is the final tally handed back to the session engine for a
// confirmScore command.
type Score struct {
	Black           float64
	White           float64
	BlackTerritory  int
	WhiteTerritory  int
	BlackCaptures   int
	WhiteCaptures   int
	DeadBlackStones int
	DeadWhiteStones int
	Komi            float64
}

// Winner reports which color has the higher final score, or Empty on an
// exact tie (which cannot normally happen with a fractional komi, but
// the kernel does not assume that).
func (s Score) Winner() Color {
	switch {
	case s.Black > s.White:
		return Black
	case s.White > s.Black:
		return White
	default:
		return Empty
	}
}

// ScoreGame computes the final score for board under the given rule
// set. dead is the set of positions both players agreed are dead;
// capturedStones are the running capture counts accumulated during
// play. komi is the game record's configured komi value, which this
// function may override for rule sets (Ing) that prescribe their own.
//
// The procedure follows spec step-for-step: remove dead stones (crediting
// them as captures for the opponent), flood-fill the remaining empty
// regions for territory, then combine territory/captures/komi per rule
// set.
func ScoreGame(board *Board, dead map[Position]bool, capturedStones map[Color]int, komi float64, rule RuleSet) (Score, map[Position]Color) {
	effective := board.Clone()
	deadBlack, deadWhite := 0, 0
	for p := range dead {
		switch effective.At(p) {
		case Black:
			deadBlack++
		case White:
			deadWhite++
		default:
			continue
		}
		delete(effective.Stones, p)
	}

	territory := floodTerritory(effective)

	blackTerritory, whiteTerritory := 0, 0
	for _, owner := range territory {
		switch owner {
		case Black:
			blackTerritory++
		case White:
			whiteTerritory++
		}
	}

	blackCaptures := capturedStones[Black] + deadWhite
	whiteCaptures := capturedStones[White] + deadBlack

	if rule == Ing {
		komi = IngKomi
	}

	score := Score{
		BlackTerritory:  blackTerritory,
		WhiteTerritory:  whiteTerritory,
		BlackCaptures:   blackCaptures,
		WhiteCaptures:   whiteCaptures,
		DeadBlackStones: deadBlack,
		DeadWhiteStones: deadWhite,
		Komi:            komi,
	}

	switch rule {
	case Japanese, Korean:
		score.Black = float64(blackTerritory + blackCaptures)
		score.White = float64(whiteTerritory+whiteCaptures) + komi
	case Chinese, AGA, Ing:
		blackStones, whiteStones := countLiving(effective)
		score.Black = float64(blackTerritory + blackStones)
		score.White = float64(whiteTerritory+whiteStones) + komi
	default:
		score.Black = float64(blackTerritory + blackCaptures)
		score.White = float64(whiteTerritory+whiteCaptures) + komi
	}

	return score, territory
}

// countLiving counts stones remaining on an (already dead-stone-pruned)
// board, per color, for area-counting rule sets.
func countLiving(b *Board) (black, white int) {
	for _, c := range b.Stones {
		switch c {
		case Black:
			black++
		case White:
			white++
		}
	}
	return
}

// floodTerritory flood-fills every empty region of b and assigns it to
// the single color bordering it, or leaves it unassigned (dame) when
// both colors border the region, matching spec's "neutral" rule.
func floodTerritory(b *Board) map[Position]Color {
	territory := make(map[Position]Color)
	visited := make(map[Position]bool)

	for x := 0; x < b.Size; x++ {
		for y := 0; y < b.Size; y++ {
			p := Position{x, y}
			if visited[p] || b.At(p) != Empty {
				continue
			}

			region := []Position{p}
			visited[p] = true
			borders := make(map[Color]bool)

			stack := []Position{p}
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, n := range adjacent(cur) {
					if !withinBounds(n, b.Size) {
						continue
					}
					switch b.At(n) {
					case Empty:
						if !visited[n] {
							visited[n] = true
							region = append(region, n)
							stack = append(stack, n)
						}
					case Black:
						borders[Black] = true
					case White:
						borders[White] = true
					}
				}
			}

			var owner Color
			if borders[Black] && !borders[White] {
				owner = Black
			} else if borders[White] && !borders[Black] {
				owner = White
			} else {
				owner = Empty // dame, or fully enclosed board with no stones at all
			}
			for _, r := range region {
				territory[r] = owner
			}
		}
	}

	// Edge case: a color with no stones at all concedes the whole board
	// to the other after dead-stone removal.
	blackStones, whiteStones := countLiving(b)
	if blackStones == 0 && whiteStones > 0 {
		for p := range territory {
			territory[p] = White
		}
	} else if whiteStones == 0 && blackStones > 0 {
		for p := range territory {
			territory[p] = Black
		}
	}

	return territory
}
