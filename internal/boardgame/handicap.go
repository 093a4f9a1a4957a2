// Handicap stone placement tables
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

// starPoints lists the conventional handicap star points for the three
// standard board sizes, in the fixed order in which they are filled as
// handicap count increases (corners first, then the center/tengen, then
// side midpoints).
var starPoints = map[int][]Position{
	9: {
		{2, 2}, {6, 6}, {2, 6}, {6, 2},
		{4, 4},
		{2, 4}, {6, 4},
	},
	13: {
		{3, 3}, {9, 9}, {3, 9}, {9, 3},
		{6, 6},
		{3, 6}, {9, 6},
	},
	19: {
		{3, 3}, {15, 15}, {3, 15}, {15, 3},
		{9, 9},
		{3, 9}, {15, 9}, {9, 3}, {9, 15},
	},
}

// HandicapStones returns the board positions that receive a pre-placed
// black stone for the given board size and handicap count. Counts above
// a table's length are capped at that length. Handicap counts outside
// [2,9], or board sizes without a defined star-point table, return nil;
// the session engine then places no stones, but for any handicap above
// zero it still gives White the first move and applies handicap komi.
func HandicapStones(size, handicap int) []Position {
	if handicap < 2 || handicap > 9 {
		return nil
	}
	points, ok := starPoints[size]
	if !ok {
		return nil
	}
	if handicap > len(points) {
		handicap = len(points)
	}
	out := make([]Position, handicap)
	copy(out, points[:handicap])
	return out
}

// HandicapKomi returns the reduced komi conventionally used for a
// handicap game under the given rule set, in place of the even-game
// komi a GameState would otherwise carry.
func HandicapKomi(rule RuleSet) float64 {
	switch rule {
	case Japanese, Korean:
		return 0.5
	case Chinese, AGA:
		return 0
	case Ing:
		return IngKomi
	default:
		return 0.5
	}
}
