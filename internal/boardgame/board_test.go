package boardgame

import "testing"

func must(t *testing.T, board *Board, p, ko Position, hasKo bool, c Color) MoveResult {
	t.Helper()
	res, fail := ApplyMove(board, p, ko, hasKo, c)
	if fail != NoFailure {
		t.Fatalf("ApplyMove(%v, %v) unexpectedly failed: %v", p, c, fail)
	}
	return res
}

// TestCaptureAndKo reproduces scenario S1: a single-stone capture
// followed by an illegal immediate recapture, then a legal replay once
// the ko position has moved on.
func TestCaptureAndKo(t *testing.T) {
	board := NewBoard(9)

	res := must(t, board, Position{3, 4}, Position{}, false, White)
	board = res.Board
	res = must(t, board, Position{4, 4}, Position{}, false, Black)
	board = res.Board
	res = must(t, board, Position{5, 4}, Position{}, false, White)
	board = res.Board
	res = must(t, board, Position{4, 3}, Position{}, false, White)
	board = res.Board

	// White plays (4,5), filling the black stone's last liberty at (4,4).
	res = must(t, board, Position{4, 5}, Position{}, false, White)
	board = res.Board
	if len(res.Captured) != 1 || res.Captured[0] != (Position{4, 4}) {
		t.Fatalf("expected capture of (4,4), got %v", res.Captured)
	}
	if !res.HasKo || res.KoCandidate != (Position{4, 4}) {
		t.Fatalf("expected ko candidate (4,4), got hasKo=%v candidate=%v", res.HasKo, res.KoCandidate)
	}
	whiteCaptures := len(res.Captured)

	// Black may not immediately recapture at (4,4).
	_, fail := ApplyMove(board, Position{4, 4}, res.KoCandidate, true, Black)
	if fail != KoViolation {
		t.Fatalf("expected KoViolation, got %v", fail)
	}

	// Black plays elsewhere, clearing the ko.
	res = must(t, board, Position{0, 0}, res.KoCandidate, true, Black)
	board = res.Board

	// White may now legally play into the vacated point; the ko
	// restriction only ever applied to black's immediate recapture.
	res, fail = ApplyMove(board, Position{4, 4}, Position{}, false, White)
	if fail != NoFailure {
		t.Fatalf("expected (4,4) to be open to white, got %v", fail)
	}
	whiteCaptures += len(res.Captured)
	if whiteCaptures != 1 {
		t.Fatalf("expected capturedStones.white == 1, got %d", whiteCaptures)
	}
}

// TestSuicideRejection reproduces scenario S2.
func TestSuicideRejection(t *testing.T) {
	board := NewBoard(9)
	board.Stones[Position{0, 1}] = White
	board.Stones[Position{1, 0}] = White

	_, fail := ApplyMove(board, Position{0, 0}, Position{}, false, Black)
	if fail != Suicide {
		t.Fatalf("expected Suicide, got %v", fail)
	}

	board.Stones[Position{2, 0}] = Black
	board.Stones[Position{0, 2}] = Black
	board.Stones[Position{1, 1}] = White

	_, fail = ApplyMove(board, Position{0, 0}, Position{}, false, Black)
	if fail != Suicide {
		t.Fatalf("expected continued Suicide with white surrounding, got %v", fail)
	}

	delete(board.Stones, Position{1, 1})
	_, fail = ApplyMove(board, Position{0, 0}, Position{}, false, Black)
	if fail != NoFailure {
		t.Fatalf("expected (0,0) to be legal once (1,1) is removed, got %v", fail)
	}
}

// TestHandicapSetup reproduces scenario S5.
func TestHandicapSetup(t *testing.T) {
	stones := HandicapStones(19, 4)
	if len(stones) != 4 {
		t.Fatalf("expected 4 handicap stones, got %d", len(stones))
	}
	want := map[Position]bool{
		{3, 3}: true, {3, 15}: true, {15, 3}: true, {15, 15}: true,
	}
	for _, p := range stones {
		if !want[p] {
			t.Fatalf("unexpected handicap stone at %v", p)
		}
		delete(want, p)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected handicap stones: %v", want)
	}
}

func TestLibertiesInvariant(t *testing.T) {
	board := NewBoard(9)
	res := must(t, board, Position{4, 4}, Position{}, false, Black)
	if Liberties(res.Board, Position{4, 4}) != 4 {
		t.Fatalf("expected 4 liberties for a lone stone, got %d", Liberties(res.Board, Position{4, 4}))
	}
}

func TestOutOfBoundsAndOccupied(t *testing.T) {
	board := NewBoard(9)
	if _, fail := ApplyMove(board, Position{9, 0}, Position{}, false, Black); fail != OutOfBounds {
		t.Fatalf("expected OutOfBounds, got %v", fail)
	}
	res := must(t, board, Position{0, 0}, Position{}, false, Black)
	if _, fail := ApplyMove(res.Board, Position{0, 0}, Position{}, false, White); fail != Occupied {
		t.Fatalf("expected Occupied, got %v", fail)
	}
}
