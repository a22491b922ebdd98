package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
)

func newEmptyBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.NewBoard(board.DefaultRows, board.DefaultCols)
	require.NoError(t, err)
	return b
}

func TestArsenalRaysReachEdge(t *testing.T) {
	b := newEmptyBoard(t)
	arsenal := board.Coord{Row: 10, Col: 12}
	require.NoError(t, b.SetTerrain(arsenal, board.Arsenal, board.North))

	v := Compute(b, board.North)

	// Every square on one of the 8 rays from the arsenal to the edge is online.
	for _, d := range directions8 {
		cur := arsenal
		for {
			cur = cur.Add(d.dr, d.dc)
			if !b.InBounds(cur) {
				break
			}
			assert.True(t, v.IsOnline(b, cur), "expected %v online from ray %v", cur, d)
		}
	}

	// A square off every ray and not adjacent to the arsenal is offline.
	assert.False(t, v.IsOnline(b, board.Coord{Row: 0, Col: 0}))
}

func TestRelayForwarding(t *testing.T) {
	b := newEmptyBoard(t)
	require.NoError(t, b.SetTerrain(board.Coord{Row: 0, Col: 0}, board.Arsenal, board.North))
	relay := board.Coord{Row: 0, Col: 5}
	require.NoError(t, b.PlacePiece(relay, board.NewPiece(board.Relay, board.North)))
	enemy := board.Coord{Row: 0, Col: 10}
	require.NoError(t, b.PlacePiece(enemy, board.NewPiece(board.Infantry, board.South)))

	v := Compute(b, board.North)

	for col := 0; col <= 9; col++ {
		c := board.Coord{Row: 0, Col: col}
		assert.True(t, v.IsOnline(b, c), "expected (0,%d) online", col)
	}
	assert.False(t, v.IsOnline(b, enemy), "enemy square itself is never marked")
}

func TestEnemyPieceBlocksRay(t *testing.T) {
	b := newEmptyBoard(t)
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 0}, board.Arsenal, board.North))
	require.NoError(t, b.PlacePiece(board.Coord{Row: 5, Col: 3}, board.NewPiece(board.Infantry, board.South)))

	v := Compute(b, board.North)

	assert.True(t, v.IsOnline(b, board.Coord{Row: 5, Col: 1}))
	assert.True(t, v.IsOnline(b, board.Coord{Row: 5, Col: 2}))
	assert.False(t, v.IsOnline(b, board.Coord{Row: 5, Col: 4}), "blocked beyond the enemy piece")
}

func TestMountainBlocksRay(t *testing.T) {
	b := newEmptyBoard(t)
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 0}, board.Arsenal, board.North))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 3}, board.Mountain, board.North))

	v := Compute(b, board.North)

	assert.True(t, v.IsOnline(b, board.Coord{Row: 5, Col: 2}))
	assert.False(t, v.IsOnline(b, board.Coord{Row: 5, Col: 3}), "mountains are never marked")
	assert.False(t, v.IsOnline(b, board.Coord{Row: 5, Col: 4}))
}

func TestMountainPassIsTransparent(t *testing.T) {
	b := newEmptyBoard(t)
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 0}, board.Arsenal, board.North))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 5, Col: 3}, board.MountainPass, board.North))

	v := Compute(b, board.North)

	assert.True(t, v.IsOnline(b, board.Coord{Row: 5, Col: 3}))
	assert.True(t, v.IsOnline(b, board.Coord{Row: 5, Col: 5}))
}

func TestProximityMarksAdjacentEmptySquares(t *testing.T) {
	b := newEmptyBoard(t)
	// A lone friendly infantry far from any arsenal is offline, so it
	// radiates nothing by proximity either.
	lone := board.Coord{Row: 15, Col: 15}
	require.NoError(t, b.PlacePiece(lone, board.NewPiece(board.Infantry, board.North)))
	v := Compute(b, board.North)
	assert.False(t, v.IsOnline(b, lone.Add(1, 0)))

	// An online infantry radiates proximity to its empty neighbours.
	b2 := newEmptyBoard(t)
	require.NoError(t, b2.SetTerrain(board.Coord{Row: 0, Col: 0}, board.Arsenal, board.North))
	online := board.Coord{Row: 0, Col: 1}
	require.NoError(t, b2.PlacePiece(online, board.NewPiece(board.Infantry, board.North)))
	v2 := Compute(b2, board.North)
	require.True(t, v2.IsOnline(b2, online))
	assert.True(t, v2.IsOnline(b2, board.Coord{Row: 1, Col: 2}), "diagonal neighbour of an online piece")
}

func TestEffectiveStatsOfflineDegradation(t *testing.T) {
	online := EffectiveStats(board.Infantry, true)
	assert.Equal(t, board.Infantry.Stats(), online)

	offline := EffectiveStats(board.Infantry, false)
	assert.Equal(t, board.Stats{}, offline)

	relayOffline := EffectiveStats(board.Relay, false)
	assert.Equal(t, board.Stats{Attack: 0, Defense: 1, Movement: 1, Range: 0}, relayOffline)
}
