// Package movement generates and executes legal moves over the 8-connected
// movement graph: BFS-reachable destinations gated by terrain, ownership,
// and network coverage, plus the per-turn bookkeeping the legality
// predicate depends on.
package movement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/network"
)

// Context is the turn-level state the legality predicate needs but does not
// own. It is supplied fresh by the turn controller on every call so that
// movement has no hidden state of its own.
type Context struct {
	CurrentPlayer board.Color
	Phase         board.Phase
	MovesMade     int
	MovedPieces   map[uuid.UUID]bool
	MustRetreat   map[board.Coord]bool
	RetreatingNow map[board.Coord]bool
	GameOver      bool
}

var directions8 = []struct{ dr, dc int }{
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
}

const maxMovesPerTurn = 5

// GenerateLegalMoves returns every destination reachable from `from` under
// the movement graph, honoring the piece's base movement range but not the
// per-turn budget/phase/retreat gates (those are checked by ValidateMove,
// which calls this as a subroutine).
func GenerateLegalMoves(b *board.Board, view *network.View, from board.Coord) ([]board.Coord, error) {
	sq, err := b.At(from)
	if err != nil {
		return nil, err
	}
	if !sq.Occupied {
		return nil, fmt.Errorf("movement: no piece at %v", from)
	}
	piece := sq.Occupant
	// Range is the piece's base movement stat regardless of the mover's own
	// online status: whether it may move at all is ValidateMove's rule 2
	// (offline and not a relay). Only the thoroughfare squares a path passes
	// through, not the mover itself, are gated on network coverage below.
	movement := piece.Kind.Stats().Movement
	if movement == 0 {
		return nil, nil
	}

	visited := map[board.Coord]bool{from: true}
	var reachable []board.Coord
	frontier := []board.Coord{from}

	for step := 0; step < movement; step++ {
		var next []board.Coord
		for _, cur := range frontier {
			for _, d := range directions8 {
				n := cur.Add(d.dr, d.dc)
				if visited[n] || !b.InBounds(n) {
					continue
				}
				nsq, err := b.At(n)
				if err != nil || nsq.Terrain == board.Mountain {
					continue
				}
				if nsq.Occupied && nsq.Occupant.Owner != piece.Owner {
					continue // enemy-occupied: neither a destination nor a thoroughfare
				}
				visited[n] = true
				if nsq.Occupied {
					// Friendly piece: not a valid destination, but transparent
					// for longer paths.
					next = append(next, n)
					continue
				}
				reachable = append(reachable, n)
				if view.IsOnline(b, n) {
					// Only a square covered by the mover's own network lets a
					// path continue through it to a farther destination.
					next = append(next, n)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	return reachable, nil
}

// ValidateMove checks the full legality predicate for from->to under ctx.
// Returns nil iff legal.
func ValidateMove(b *board.Board, view *network.View, ctx Context, from, to board.Coord) error {
	if ctx.GameOver {
		return fmt.Errorf("movement: game is over")
	}
	if ctx.Phase != board.Movement {
		return fmt.Errorf("movement: not in movement phase")
	}
	if ctx.MovesMade >= maxMovesPerTurn {
		return fmt.Errorf("movement: move budget exhausted")
	}

	sq, err := b.At(from)
	if err != nil {
		return err
	}
	if !sq.Occupied || sq.Occupant.Owner != ctx.CurrentPlayer {
		return fmt.Errorf("movement: %v does not hold a piece owned by the mover", from)
	}
	piece := sq.Occupant

	online := view.IsPieceOnline(b, from)
	if !online && !piece.Kind.IsRelay() {
		return fmt.Errorf("movement: %v is offline and not a relay", from)
	}

	toSq, err := b.At(to)
	if err != nil {
		return err
	}
	if toSq.Terrain == board.Mountain || toSq.Occupied {
		return fmt.Errorf("movement: %v is not a legal destination", to)
	}

	stats := network.EffectiveStats(piece.Kind, online)
	if from.Chebyshev(to) > stats.Movement {
		return fmt.Errorf("movement: %v exceeds movement range", to)
	}

	if ctx.MovedPieces[piece.ID] {
		return fmt.Errorf("movement: piece already moved this turn")
	}

	if len(ctx.RetreatingNow) > 0 && !ctx.RetreatingNow[from] {
		return fmt.Errorf("movement: other pieces must complete retreat before this one may move")
	}

	legal, err := GenerateLegalMoves(b, view, from)
	if err != nil {
		return err
	}
	for _, c := range legal {
		if c == to {
			return nil
		}
	}
	return fmt.Errorf("movement: no legal path from %v to %v within range", from, to)
}

// Result describes the side effects of a completed move.
type Result struct {
	Piece            board.Piece
	ArsenalDestroyed bool
	ArsenalOwner     board.Color
}

// Execute performs the board mutation for a validated move: relocates the
// piece and, if it lands on an enemy arsenal, destroys it. It does not
// check legality — call ValidateMove first — and does not touch turn
// bookkeeping or the action log; those are the turn controller's job.
func Execute(b *board.Board, from, to board.Coord) (Result, error) {
	toSqBefore, err := b.At(to)
	if err != nil {
		return Result{}, err
	}

	piece, err := b.MovePiece(from, to)
	if err != nil {
		return Result{}, err
	}

	res := Result{Piece: piece}
	if toSqBefore.Terrain == board.Arsenal && toSqBefore.ArsenalOwner != piece.Owner {
		res.ArsenalDestroyed = true
		res.ArsenalOwner = toSqBefore.ArsenalOwner
		if err := b.SetTerrain(to, board.Flat, board.North); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
