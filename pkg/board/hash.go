package board

import "math/rand"

// ObservableHash is a whole-state hash of a board plus its turn-level
// bookkeeping. It exists purely as a test oracle: a round-trip through
// undo/redo, or through serialise/parse, should reproduce the same hash.
// It is recomputed from scratch every time, never maintained incrementally —
// recomputation cost is not a concern for a test harness.
//
// See also: https://research.cs.wisc.edu/techreports/1970/TR88.pdf.
type ObservableHash uint64

// HashTable is a pseudo-randomized table of per-square, per-feature hash
// contributions, combined by XOR to produce an ObservableHash.
type HashTable struct {
	terrain      [][5]ObservableHash // indexed by square, then Terrain
	arsenalOwner [][2]ObservableHash
	piece        [][2][int(NumKinds) + 1]ObservableHash // indexed by square, Color, Kind
	turn         [2]ObservableHash
	phase        [2]ObservableHash
}

// NewHashTable allocates a table sized for a board of rows*cols squares.
func NewHashTable(seed int64, squares int) *HashTable {
	r := rand.New(rand.NewSource(seed))

	t := &HashTable{
		terrain:      make([][5]ObservableHash, squares),
		arsenalOwner: make([][2]ObservableHash, squares),
		piece:        make([][2][int(NumKinds) + 1]ObservableHash, squares),
	}
	for sq := 0; sq < squares; sq++ {
		for i := range t.terrain[sq] {
			t.terrain[sq][i] = ObservableHash(r.Uint64())
		}
		for i := range t.arsenalOwner[sq] {
			t.arsenalOwner[sq][i] = ObservableHash(r.Uint64())
		}
		for owner := range t.piece[sq] {
			for kind := range t.piece[sq][owner] {
				t.piece[sq][owner][kind] = ObservableHash(r.Uint64())
			}
		}
	}
	t.turn[North] = ObservableHash(r.Uint64())
	t.turn[South] = ObservableHash(r.Uint64())
	return t
}

// Hash computes the observable-state hash of a board plus the caller-supplied
// turn scalars: the current player, and whether the phase is Battle as a
// plain bool.
func (t *HashTable) Hash(b *Board, turn Color, battlePhase bool) ObservableHash {
	var h ObservableHash
	for i, terr := range b.terrain {
		h ^= t.terrain[i][terr]
		if terr == Arsenal {
			h ^= t.arsenalOwner[i][b.arsenalOwner[i]]
		}
		if p := b.occupant[i]; p != nil {
			h ^= t.piece[i][p.Owner][p.Kind]
		}
	}
	h ^= t.turn[turn]
	if battlePhase {
		h ^= 0x9e3779b97f4a7c15
	}
	return h
}
