// Package board contains the wargame board representation: squares, terrain,
// pieces and the coordinate algebra that ties them together.
package board

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultRows and DefaultCols are the dimensions of the standard board.
// Rows 0..DefaultRows/2-1 are NORTH territory, the remainder SOUTH.
const (
	DefaultRows = 20
	DefaultCols = 25
)

// Piece is a unit on the board: a kind, an owner, and a stable identity that
// survives moves, captures-in-waiting (retreat), and undo/redo of moves. A
// piece restored by undoing a capture is given a fresh identity.
type Piece struct {
	ID    uuid.UUID
	Kind  Kind
	Owner Color
}

// NewPiece allocates a piece with a fresh identity.
func NewPiece(kind Kind, owner Color) Piece {
	return Piece{ID: uuid.New(), Kind: kind, Owner: owner}
}

// Square is a read-only snapshot of one cell of the board.
type Square struct {
	Terrain      Terrain
	ArsenalOwner Color // meaningful only when Terrain == Arsenal
	Occupant     Piece
	Occupied     bool
}

// Board is a dense grid of squares: one terrain array, one arsenal-ownership
// overlay, one occupant array. Pieces are allocated once and referenced by
// identity; a per-owner index is maintained incrementally for fast victory
// and network-propagation scans. Not thread-safe — callers serialize access
// the way the engine does, with a single mutex around the whole game state.
type Board struct {
	rows, cols int

	terrain      []Terrain
	arsenalOwner []Color
	occupant     []*Piece

	bySquare map[uuid.UUID]Coord
	byOwner  map[Color]map[uuid.UUID]Coord
}

// NewBoard allocates an empty board of the given dimensions, all flat terrain.
func NewBoard(rows, cols int) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("board: invalid dimensions %dx%d", rows, cols)
	}
	n := rows * cols
	b := &Board{
		rows:         rows,
		cols:         cols,
		terrain:      make([]Terrain, n),
		arsenalOwner: make([]Color, n),
		occupant:     make([]*Piece, n),
		bySquare:     make(map[uuid.UUID]Coord),
		byOwner:      map[Color]map[uuid.UUID]Coord{North: {}, South: {}},
	}
	return b, nil
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// InBounds returns true iff c is within the board's dimensions.
func (b *Board) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < b.rows && c.Col >= 0 && c.Col < b.cols
}

func (b *Board) index(c Coord) int {
	return c.ToIndex(b.cols)
}

// At returns a snapshot of the square at c.
func (b *Board) At(c Coord) (Square, error) {
	if !b.InBounds(c) {
		return Square{}, fmt.Errorf("board: %v out of bounds", c)
	}
	i := b.index(c)
	sq := Square{Terrain: b.terrain[i]}
	if sq.Terrain == Arsenal {
		sq.ArsenalOwner = b.arsenalOwner[i]
	}
	if p := b.occupant[i]; p != nil {
		sq.Occupant = *p
		sq.Occupied = true
	}
	return sq, nil
}

// SetTerrain sets the terrain tag of a square directly, bypassing any
// movement/combat side effects. Used for board setup and KFEN decoding only.
func (b *Board) SetTerrain(c Coord, t Terrain, owner Color) error {
	if !b.InBounds(c) {
		return fmt.Errorf("board: %v out of bounds", c)
	}
	if !t.IsValid() {
		return fmt.Errorf("board: invalid terrain %v", t)
	}
	i := b.index(c)
	b.terrain[i] = t
	if t == Arsenal {
		b.arsenalOwner[i] = owner
	} else {
		b.arsenalOwner[i] = North
	}
	return nil
}

// PlacePiece places p on an empty, in-bounds square. Used for board setup
// and KFEN decoding; it is not a move and does not touch terrain.
func (b *Board) PlacePiece(c Coord, p Piece) error {
	if !b.InBounds(c) {
		return fmt.Errorf("board: %v out of bounds", c)
	}
	i := b.index(c)
	if b.occupant[i] != nil {
		return fmt.Errorf("board: %v already occupied", c)
	}
	if !p.Owner.IsValid() || !p.Kind.IsValid() {
		return fmt.Errorf("board: invalid piece %+v", p)
	}
	cp := p
	b.occupant[i] = &cp
	b.bySquare[p.ID] = c
	b.byOwner[p.Owner][p.ID] = c
	return nil
}

// RemovePiece clears the occupant of c, if any, and drops it from the
// identity indexes. Returns the removed piece and whether one was present.
func (b *Board) RemovePiece(c Coord) (Piece, bool, error) {
	if !b.InBounds(c) {
		return Piece{}, false, fmt.Errorf("board: %v out of bounds", c)
	}
	i := b.index(c)
	p := b.occupant[i]
	if p == nil {
		return Piece{}, false, nil
	}
	b.occupant[i] = nil
	delete(b.bySquare, p.ID)
	delete(b.byOwner[p.Owner], p.ID)
	return *p, true, nil
}

// MovePiece relocates the occupant of `from` to `to`, which must be empty.
// It does not validate legality — that is the movement engine's job — and
// does not touch terrain; arsenal destruction is handled by the caller.
func (b *Board) MovePiece(from, to Coord) (Piece, error) {
	if !b.InBounds(from) || !b.InBounds(to) {
		return Piece{}, fmt.Errorf("board: move %v->%v out of bounds", from, to)
	}
	fi, ti := b.index(from), b.index(to)
	p := b.occupant[fi]
	if p == nil {
		return Piece{}, fmt.Errorf("board: no piece at %v", from)
	}
	if b.occupant[ti] != nil {
		return Piece{}, fmt.Errorf("board: %v already occupied", to)
	}
	b.occupant[fi] = nil
	b.occupant[ti] = p
	b.bySquare[p.ID] = to
	b.byOwner[p.Owner][p.ID] = to
	return *p, nil
}

// Find returns the current square of a piece by identity.
func (b *Board) Find(id uuid.UUID) (Coord, bool) {
	c, ok := b.bySquare[id]
	return c, ok
}

// PiecesOf returns a snapshot of every (square, piece) pair owned by c.
func (b *Board) PiecesOf(c Color) []struct {
	Coord Coord
	Piece Piece
} {
	out := make([]struct {
		Coord Coord
		Piece Piece
	}, 0, len(b.byOwner[c]))
	for id, sq := range b.byOwner[c] {
		out = append(out, struct {
			Coord Coord
			Piece Piece
		}{Coord: sq, Piece: *b.occupant[b.index(sq)]})
		_ = id
	}
	return out
}

// Arsenals returns the coordinates of every arsenal square owned by c.
func (b *Board) Arsenals(c Color) []Coord {
	var out []Coord
	for i, t := range b.terrain {
		if t == Arsenal && b.arsenalOwner[i] == c {
			row, col := i/b.cols, i%b.cols
			out = append(out, Coord{Row: row, Col: col})
		}
	}
	return out
}

// Clone deep-copies the board, including piece identities, so that a copy
// can be mutated independently (used by tests that compare recomputed state
// against incrementally-maintained state).
func (b *Board) Clone() *Board {
	nb := &Board{
		rows:         b.rows,
		cols:         b.cols,
		terrain:      append([]Terrain(nil), b.terrain...),
		arsenalOwner: append([]Color(nil), b.arsenalOwner...),
		occupant:     make([]*Piece, len(b.occupant)),
		bySquare:     make(map[uuid.UUID]Coord, len(b.bySquare)),
		byOwner:      map[Color]map[uuid.UUID]Coord{North: {}, South: {}},
	}
	for i, p := range b.occupant {
		if p == nil {
			continue
		}
		cp := *p
		nb.occupant[i] = &cp
	}
	for id, c := range b.bySquare {
		nb.bySquare[id] = c
	}
	for owner, m := range b.byOwner {
		for id, c := range m {
			nb.byOwner[owner][id] = c
		}
	}
	return nb
}
