// JSON wire encoding for board positions and stones
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

import "encoding/json"

// stoneJSON is one entry of a Board's wire representation: Go's
// encoding/json cannot marshal a map keyed by a struct, so Board
// round-trips through a flat slice of these instead (spec invariant 5).
type stoneJSON struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

type boardJSON struct {
	Size   int         `json:"size"`
	Stones []stoneJSON `json:"stones"`
}

// MarshalJSON implements json.Marshaler.
func (b *Board) MarshalJSON() ([]byte, error) {
	out := boardJSON{Size: b.Size}
	for p, c := range b.Stones {
		out.Stones = append(out.Stones, stoneJSON{X: p.X, Y: p.Y, Color: c.String()})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Board) UnmarshalJSON(data []byte) error {
	var in boardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Size = in.Size
	b.Stones = make(map[Position]Color, len(in.Stones))
	for _, s := range in.Stones {
		var c Color
		switch s.Color {
		case "black":
			c = Black
		case "white":
			c = White
		default:
			continue
		}
		b.Stones[Position{s.X, s.Y}] = c
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Color so it serializes as
// the lowercase name clients expect instead of a bare integer.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler for Color.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "black":
		*c = Black
	case "white":
		*c = White
	default:
		*c = Empty
	}
	return nil
}

// PositionSet marshals a set of positions (used for koPosition presence,
// dead stones) as a plain slice, again sidestepping the struct-keyed-map
// limitation of encoding/json.
type PositionSet map[Position]bool

// MarshalJSON implements json.Marshaler.
func (s PositionSet) MarshalJSON() ([]byte, error) {
	out := make([]Position, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *PositionSet) UnmarshalJSON(data []byte) error {
	var in []Position
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(PositionSet, len(in))
	for _, p := range in {
		out[p] = true
	}
	*s = out
	return nil
}

// TerritoryMap marshals a position→owner map as a flat slice of
// {x,y,owner} entries.
type TerritoryMap map[Position]Color

type territoryEntryJSON struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Owner string `json:"owner"`
}

// MarshalJSON implements json.Marshaler.
func (t TerritoryMap) MarshalJSON() ([]byte, error) {
	out := make([]territoryEntryJSON, 0, len(t))
	for p, c := range t {
		out = append(out, territoryEntryJSON{X: p.X, Y: p.Y, Owner: c.String()})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TerritoryMap) UnmarshalJSON(data []byte) error {
	var in []territoryEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(TerritoryMap, len(in))
	for _, e := range in {
		var c Color
		switch e.Owner {
		case "black":
			c = Black
		case "white":
			c = White
		default:
			c = Empty
		}
		out[Position{e.X, e.Y}] = c
	}
	*t = out
	return nil
}
