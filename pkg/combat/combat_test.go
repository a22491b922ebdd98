package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/network"
)

func newBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.NewBoard(board.DefaultRows, board.DefaultCols)
	require.NoError(t, err)
	return b
}

// EffectiveStats zeroes offline non-relay combat pieces, which would make
// every scenario below trivially zero. So each test that checks power gives
// both sides an arsenal that covers the whole fight, keeping every piece
// online so the assertions are on base power.
func wireArsenals(t *testing.T, b *board.Board) {
	t.Helper()
	// Same row as every fixture's fight, so a single ray each covers it —
	// an off-axis arsenal would leave the fighting pieces offline and
	// EffectiveStats would zero them all out.
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 0}, board.Arsenal, board.North))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 24}, board.Arsenal, board.South))
}

func TestLoneInfantryAttackFails(t *testing.T) {
	b := newBoard(t)
	wireArsenals(t, b)
	attacker := board.Coord{Row: 5, Col: 10}
	target := board.Coord{Row: 5, Col: 12}
	require.NoError(t, b.PlacePiece(attacker, board.NewPiece(board.Infantry, board.North)))
	require.NoError(t, b.PlacePiece(target, board.NewPiece(board.Infantry, board.South)))

	nv := network.Compute(b, board.North)
	sv := network.Compute(b, board.South)

	a, err := AttackPower(b, nv, target, board.North)
	require.NoError(t, err)
	d, err := DefensePower(b, sv, target, board.South)
	require.NoError(t, err)

	assert.Equal(t, 4, a)
	assert.Equal(t, 6, d)
	assert.Equal(t, Fail, Resolve(a, d))
}

func TestSingleCavalryChargeRetreats(t *testing.T) {
	b := newBoard(t)
	wireArsenals(t, b)
	attacker := board.Coord{Row: 5, Col: 11}
	target := board.Coord{Row: 5, Col: 12}
	require.NoError(t, b.PlacePiece(attacker, board.NewPiece(board.Cavalry, board.North)))
	require.NoError(t, b.PlacePiece(target, board.NewPiece(board.Infantry, board.South)))

	nv := network.Compute(b, board.North)
	sv := network.Compute(b, board.South)

	a, err := AttackPower(b, nv, target, board.North)
	require.NoError(t, err)
	d, err := DefensePower(b, sv, target, board.South)
	require.NoError(t, err)

	assert.Equal(t, 7, a)
	assert.Equal(t, 6, d)
	assert.Equal(t, Retreat, Resolve(a, d))
}

func TestFourCavalryChainedChargeCaptures(t *testing.T) {
	b := newBoard(t)
	wireArsenals(t, b)
	target := board.Coord{Row: 5, Col: 12}
	for _, col := range []int{8, 9, 10, 11} {
		require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: col}, board.NewPiece(board.Cavalry, board.North)))
	}
	require.NoError(t, b.PlacePiece(target, board.NewPiece(board.Infantry, board.South)))

	nv := network.Compute(b, board.North)
	sv := network.Compute(b, board.South)

	a, err := AttackPower(b, nv, target, board.North)
	require.NoError(t, err)
	d, err := DefensePower(b, sv, target, board.South)
	require.NoError(t, err)

	assert.Equal(t, 28, a)
	assert.Equal(t, 6, d)
	assert.Equal(t, Capture, Resolve(a, d))
}

func TestFourCavalryAgainstFortressNoChargeBonus(t *testing.T) {
	b := newBoard(t)
	wireArsenals(t, b)
	target := board.Coord{Row: 5, Col: 12}
	require.NoError(t, b.SetTerrain(target, board.Fortress, board.North))
	for _, col := range []int{8, 9, 10, 11} {
		require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: col}, board.NewPiece(board.Cavalry, board.North)))
	}
	require.NoError(t, b.PlacePiece(target, board.NewPiece(board.Infantry, board.South)))

	nv := network.Compute(b, board.North)
	sv := network.Compute(b, board.South)

	a, err := AttackPower(b, nv, target, board.North)
	require.NoError(t, err)
	d, err := DefensePower(b, sv, target, board.South)
	require.NoError(t, err)

	assert.Equal(t, 16, a)
	assert.Equal(t, 10, d)
	assert.Equal(t, Capture, Resolve(a, d))
}

func TestCanAttackRequiresLineToTarget(t *testing.T) {
	b := newBoard(t)
	target := board.Coord{Row: 5, Col: 12}
	assert.False(t, CanAttack(b, target, board.North))

	require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: 10}, board.NewPiece(board.Infantry, board.North)))
	assert.True(t, CanAttack(b, target, board.North))
}

func TestExecuteCaptureRemovesOccupantLeavesTerrain(t *testing.T) {
	b := newBoard(t)
	wireArsenals(t, b)
	target := board.Coord{Row: 5, Col: 12}
	require.NoError(t, b.SetTerrain(target, board.Fortress, board.North))
	for _, col := range []int{8, 9, 10, 11} {
		require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: col}, board.NewPiece(board.Cavalry, board.North)))
	}
	require.NoError(t, b.PlacePiece(target, board.NewPiece(board.Infantry, board.South)))

	nv := network.Compute(b, board.North)
	sv := network.Compute(b, board.South)

	res, err := Execute(b, nv, sv, target, board.North, board.South)
	require.NoError(t, err)
	assert.Equal(t, Capture, res.Outcome)
	assert.True(t, res.Captures)
	assert.Equal(t, board.South, res.Captured.Owner)

	sq, err := b.At(target)
	require.NoError(t, err)
	assert.False(t, sq.Occupied)
	assert.Equal(t, board.Fortress, sq.Terrain, "capture never touches terrain")
}

func TestGapInCavalryChainBreaksBonus(t *testing.T) {
	b := newBoard(t)
	wireArsenals(t, b)
	target := board.Coord{Row: 5, Col: 12}
	// Adjacent cavalry charges; the one at distance 3 leaves a gap at
	// distance 2, so it gets base attack only.
	require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: 11}, board.NewPiece(board.Cavalry, board.North)))
	require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: 9}, board.NewPiece(board.Cavalry, board.North)))
	require.NoError(t, b.PlacePiece(target, board.NewPiece(board.Infantry, board.South)))

	nv := network.Compute(b, board.North)

	a, err := AttackPower(b, nv, target, board.North)
	require.NoError(t, err)
	// First cavalry: 4 + 3 charge. Second cavalry: 4 base, no bonus (gap).
	assert.Equal(t, 4+3+4, a)
}
