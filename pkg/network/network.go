// Package network computes the per-player line-of-communication view: which
// squares and pieces are "online" given arsenal positions, relay forwarding,
// terrain, and enemy blockers.
package network

import (
	"github.com/google/uuid"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
)

type direction struct{ dr, dc int }

// directions8 lists the eight compass rays a ray-caster walks, in a fixed
// order so test fixtures and debug output are deterministic.
var directions8 = []direction{
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
}

// View is the derived network state for one player: which squares are
// online, and which relay pieces are active forwarders. It is a pure
// function of the board; recompute it after any mutation rather than
// patching it incrementally.
type View struct {
	Owner      board.Color
	Online     *board.Bitset
	Forwarders map[uuid.UUID]bool
}

// Compute runs the ray, relay-forwarding, and proximity phases for owner
// from scratch and returns the resulting view.
func Compute(b *board.Board, owner board.Color) *View {
	n := b.Rows() * b.Cols()
	online := board.NewBitset(n)
	forwarders := map[uuid.UUID]bool{}
	processed := map[board.Coord]bool{}

	var queue []board.Coord
	for _, c := range b.Arsenals(owner) {
		online.Set(c.ToIndex(b.Cols()))
		queue = append(queue, c)
	}

	// Relay forwarding is the same ray-casting rule applied from every active
	// forwarder's square, fed by a work queue seeded with the arsenals.
	// Each origin is processed at most once — a relay can be activated only
	// once, which is what guarantees this loop terminates.
	for len(queue) > 0 {
		origin := queue[0]
		queue = queue[1:]
		if processed[origin] {
			continue
		}
		processed[origin] = true

		for _, d := range directions8 {
			castRay(b, origin, d, owner, online, forwarders, &queue, processed)
		}
	}

	applyProximity(b, owner, online)

	return &View{Owner: owner, Online: online, Forwarders: forwarders}
}

// castRay walks one direction from origin, marking every square it passes
// as online until it is blocked by a mountain or an enemy piece. Mountains
// and the blocking enemy's own square are never marked.
func castRay(b *board.Board, origin board.Coord, d direction, owner board.Color, online *board.Bitset, forwarders map[uuid.UUID]bool, queue *[]board.Coord, processed map[board.Coord]bool) {
	cur := origin
	for {
		cur = cur.Add(d.dr, d.dc)
		if !b.InBounds(cur) {
			return
		}
		sq, err := b.At(cur)
		if err != nil {
			return
		}
		if sq.Terrain == board.Mountain {
			return
		}
		if sq.Occupied && sq.Occupant.Owner != owner {
			return
		}

		online.Set(cur.ToIndex(b.Cols()))

		if sq.Occupied && sq.Occupant.Owner == owner && sq.Occupant.Kind.IsRelay() {
			forwarders[sq.Occupant.ID] = true
			if !processed[cur] {
				*queue = append(*queue, cur)
			}
		}
		// Mountain-pass, empty flat terrain, friendly pieces (including the
		// relay just marked above) and friendly arsenals are all transparent:
		// the ray keeps going.
	}
}

// applyProximity marks every empty square adjacent to an online piece of
// owner as online. A single pass suffices: a newly-marked empty square has
// no occupant, so it never itself becomes a source of further marks.
func applyProximity(b *board.Board, owner board.Color, online *board.Bitset) {
	var onlinePieceSquares []board.Coord
	for _, rec := range b.PiecesOf(owner) {
		if online.IsSet(rec.Coord.ToIndex(b.Cols())) {
			onlinePieceSquares = append(onlinePieceSquares, rec.Coord)
		}
	}
	for _, c := range onlinePieceSquares {
		for _, d := range directions8 {
			nb := c.Add(d.dr, d.dc)
			if !b.InBounds(nb) {
				continue
			}
			sq, err := b.At(nb)
			if err != nil || sq.Occupied {
				continue
			}
			online.Set(nb.ToIndex(b.Cols()))
		}
	}
}

// IsOnline returns true iff c is marked online in this view.
func (v *View) IsOnline(b *board.Board, c board.Coord) bool {
	return v.Online.IsSet(c.ToIndex(b.Cols()))
}

// IsPieceOnline returns true iff c holds a piece owned by v.Owner and that
// square is marked online.
func (v *View) IsPieceOnline(b *board.Board, c board.Coord) bool {
	sq, err := b.At(c)
	if err != nil || !sq.Occupied || sq.Occupant.Owner != v.Owner {
		return false
	}
	return v.IsOnline(b, c)
}

// EffectiveStats applies the offline-degradation rule to a kind's base
// stats. Combat units lose everything when offline; relays keep their base
// defense and movement so a severed network can be walked back together.
func EffectiveStats(kind board.Kind, online bool) board.Stats {
	base := kind.Stats()
	if online {
		return base
	}
	if kind.IsRelay() {
		return board.Stats{Attack: 0, Defense: base.Defense, Movement: base.Movement, Range: 0}
	}
	return board.Stats{}
}

// OnlinePieceCount returns the number of owner's pieces whose square is
// marked online in this view.
func (v *View) OnlinePieceCount(b *board.Board) int {
	n := 0
	for _, rec := range b.PiecesOf(v.Owner) {
		if v.IsOnline(b, rec.Coord) {
			n++
		}
	}
	return n
}
