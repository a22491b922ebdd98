package kfen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
)

func newBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.NewBoard(3, 4)
	require.NoError(t, err)
	return b
}

// assertSquaresEqual compares two boards structurally, ignoring piece
// identity — decode always allocates fresh piece UUIDs, so KFEN round-trips
// are structural equality, not identity equality.
func assertSquaresEqual(t *testing.T, want, got *board.Board) {
	t.Helper()
	require.Equal(t, want.Rows(), got.Rows())
	require.Equal(t, want.Cols(), got.Cols())
	for r := 0; r < want.Rows(); r++ {
		for c := 0; c < want.Cols(); c++ {
			coord := board.Coord{Row: r, Col: c}
			ws, err := want.At(coord)
			require.NoError(t, err)
			gs, err := got.At(coord)
			require.NoError(t, err)
			assert.Equal(t, ws.Terrain, gs.Terrain, "terrain at %v", coord)
			assert.Equal(t, ws.Occupied, gs.Occupied, "occupied at %v", coord)
			if ws.Terrain == board.Arsenal {
				assert.Equal(t, ws.ArsenalOwner, gs.ArsenalOwner, "arsenal owner at %v", coord)
			}
			if ws.Occupied {
				assert.Equal(t, ws.Occupant.Kind, gs.Occupant.Kind, "kind at %v", coord)
				assert.Equal(t, ws.Occupant.Owner, gs.Occupant.Owner, "owner at %v", coord)
			}
		}
	}
}

func TestEncodeDecodeRoundTripsAllSquareKinds(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.SetTerrain(board.Coord{Row: 0, Col: 0}, board.Arsenal, board.North))
	require.NoError(t, b.PlacePiece(board.Coord{Row: 0, Col: 0}, board.NewPiece(board.Relay, board.North)))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 0, Col: 1}, board.Arsenal, board.South))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 0, Col: 2}, board.Mountain, board.North))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 0, Col: 3}, board.MountainPass, board.North))
	require.NoError(t, b.PlacePiece(board.Coord{Row: 1, Col: 0}, board.NewPiece(board.Cavalry, board.South)))
	require.NoError(t, b.SetTerrain(board.Coord{Row: 1, Col: 1}, board.Fortress, board.North))
	require.NoError(t, b.PlacePiece(board.Coord{Row: 1, Col: 1}, board.NewPiece(board.Cannon, board.North)))
	require.NoError(t, b.PlacePiece(board.Coord{Row: 1, Col: 3}, board.NewPiece(board.SwiftCannon, board.South)))

	doc := Document{
		Player:     board.North,
		Phase:      board.Movement,
		Moves:      []board.Move{{From: board.Coord{Row: 1, Col: 0}, To: board.Coord{Row: 1, Col: 1}}},
		TurnNumber: 4,
		Retreats:   []board.Coord{{Row: 2, Col: 2}},
	}

	enc := Encode(b, doc)
	gotBoard, gotDoc, err := Decode(enc)
	require.NoError(t, err)

	assertSquaresEqual(t, b, gotBoard)
	assert.Equal(t, doc.Player, gotDoc.Player)
	assert.Equal(t, doc.Phase, gotDoc.Phase)
	assert.Equal(t, doc.Moves, gotDoc.Moves)
	assert.Equal(t, doc.TurnNumber, gotDoc.TurnNumber)
	assert.Equal(t, doc.Retreats, gotDoc.Retreats)
}

func TestEncodeDecodeBattlePhaseWithTarget(t *testing.T) {
	b := newBoard(t)
	doc := Document{
		Player:          board.South,
		Phase:           board.Battle,
		AttackUsed:      true,
		HasAttackTarget: true,
		AttackTarget:    board.Coord{Row: 2, Col: 1},
		TurnNumber:      7,
	}
	enc := Encode(b, doc)
	_, gotDoc, err := Decode(enc)
	require.NoError(t, err)
	assert.True(t, gotDoc.AttackUsed)
	assert.True(t, gotDoc.HasAttackTarget)
	assert.Equal(t, doc.AttackTarget, gotDoc.AttackTarget)
}

func TestEncodeDecodeBattlePhasePass(t *testing.T) {
	b := newBoard(t)
	doc := Document{Player: board.North, Phase: board.Battle, AttackUsed: true, TurnNumber: 2}
	enc := Encode(b, doc)
	_, gotDoc, err := Decode(enc)
	require.NoError(t, err)
	assert.True(t, gotDoc.AttackUsed)
	assert.False(t, gotDoc.HasAttackTarget)
}

func TestDecodeBoardOnlyVariant(t *testing.T) {
	b := newBoard(t)
	require.NoError(t, b.PlacePiece(board.Coord{Row: 2, Col: 2}, board.NewPiece(board.Infantry, board.North)))
	enc := EncodeBoard(b)
	got, err := DecodeBoard(enc)
	require.NoError(t, err)
	assertSquaresEqual(t, b, got)
}

func TestDecodeInitialEncoding(t *testing.T) {
	b, doc, err := Decode(board.InitialEncoding)
	require.NoError(t, err)
	assert.Equal(t, board.DefaultRows, b.Rows())
	assert.Equal(t, board.DefaultCols, b.Cols())
	assert.Equal(t, board.North, doc.Player)
	assert.Equal(t, board.Movement, doc.Phase)
	assert.Equal(t, 1, doc.TurnNumber)
	assert.Empty(t, doc.Moves)
	assert.Empty(t, doc.Retreats)
	assert.Len(t, b.Arsenals(board.North), 1)
	assert.Len(t, b.Arsenals(board.South), 1)
	assert.Len(t, b.PiecesOf(board.North), len(b.PiecesOf(board.South)))
}

func TestDecodeRejectsMismatchedRowLengths(t *testing.T) {
	_, _, err := Decode("__/___/N/M/[]/1/[]")
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedActionsToken(t *testing.T) {
	_, _, err := Decode("__/__/N/M/(1A,2A/1/[]")
	assert.Error(t, err)
}

func TestDecodeRejectsUnterminatedArsenalPiece(t *testing.T) {
	_, err := DecodeBoard("A{I/__")
	assert.Error(t, err)
}
