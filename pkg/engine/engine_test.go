package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/board/kfen"
	"github.com/ssjmarx/pykrieg-go/pkg/combat"
	"github.com/ssjmarx/pykrieg-go/pkg/record"
)

// smallSkirmish builds a 6x6 board with a NORTH infantry next to its
// arsenal, a SOUTH infantry within attack range but isolated from SOUTH's
// own network (so it offers no defense), and a second SOUTH infantry next
// to a SOUTH arsenal (so capturing the first doesn't also end the game by
// annihilation or network collapse). It loads the position into a fresh
// Engine and returns the squares a test needs.
func smallSkirmish(t *testing.T) (e *Engine, infantryAt, arsenalAt, targetAt board.Coord) {
	t.Helper()
	b, err := board.NewBoard(6, 6)
	require.NoError(t, err)

	infantryAt = board.Coord{Row: 0, Col: 0}
	arsenalAt = board.Coord{Row: 0, Col: 1}
	targetAt = board.Coord{Row: 0, Col: 4}

	southArsenalAt := board.Coord{Row: 5, Col: 0}
	southInfantryAt := board.Coord{Row: 5, Col: 1}

	require.NoError(t, b.SetTerrain(arsenalAt, board.Arsenal, board.North))
	require.NoError(t, b.PlacePiece(infantryAt, board.NewPiece(board.Infantry, board.North)))
	require.NoError(t, b.SetTerrain(southArsenalAt, board.Arsenal, board.South))
	require.NoError(t, b.PlacePiece(southInfantryAt, board.NewPiece(board.Infantry, board.South)))
	require.NoError(t, b.PlacePiece(targetAt, board.NewPiece(board.Infantry, board.South)))

	encoding := kfen.Encode(b, kfen.Document{Player: board.North, Phase: board.Movement, TurnNumber: 1})

	ctx := context.Background()
	e = New(ctx, "pykrieg", "test")
	require.NoError(t, e.Reset(ctx, encoding))
	return e, infantryAt, arsenalAt, targetAt
}

func TestMoveAdvancesPieceAndUndoReverses(t *testing.T) {
	ctx := context.Background()
	e, from, _, _ := smallSkirmish(t)

	to := board.Coord{Row: 1, Col: 0}
	report, err := e.Move(ctx, from.Label(), to.Label())
	require.NoError(t, err)
	assert.False(t, report.ArsenalDestroyed)
	assert.Equal(t, 1, e.Status(ctx).MovesMade)

	n, err := e.Undo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, e.Status(ctx).MovesMade)

	n, err = e.Redo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, e.Status(ctx).MovesMade)
}

func TestMoveRejectsOutOfRangeDestination(t *testing.T) {
	ctx := context.Background()
	e, from, _, _ := smallSkirmish(t)

	far := board.Coord{Row: 2, Col: 0}
	_, err := e.Move(ctx, from.Label(), far.Label())
	assert.Error(t, err)
}

func TestAttackCapturesThenRejectsSecondAttackThisTurn(t *testing.T) {
	ctx := context.Background()
	e, _, _, target := smallSkirmish(t)

	require.NoError(t, e.SwitchPhase(ctx, "battle"))
	report, err := e.Attack(ctx, target.Label())
	require.NoError(t, err)
	assert.Equal(t, combat.Capture, report.Outcome)
	assert.True(t, report.Captured)

	_, err = e.Attack(ctx, target.Label())
	assert.Error(t, err)
}

func TestAttackThenEndTurnAdvancesToOpponent(t *testing.T) {
	ctx := context.Background()
	e, _, _, target := smallSkirmish(t)

	require.NoError(t, e.SwitchPhase(ctx, "battle"))
	_, err := e.Attack(ctx, target.Label())
	require.NoError(t, err)
	_, err = e.EndTurn(ctx)
	require.NoError(t, err)

	status := e.Status(ctx)
	assert.Equal(t, board.South, status.CurrentPlayer)
	assert.Equal(t, board.Movement, status.Phase)
	assert.Equal(t, 2, status.TurnNumber)
}

func TestPassEndsBattleWithoutAttacking(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := smallSkirmish(t)

	require.NoError(t, e.SwitchPhase(ctx, "battle"))
	require.NoError(t, e.Pass(ctx))
	_, err := e.EndTurn(ctx)
	require.NoError(t, err)

	assert.Equal(t, board.South, e.Status(ctx).CurrentPlayer)
}

func TestEndTurnRejectedBeforeAttackOrPass(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := smallSkirmish(t)

	require.NoError(t, e.SwitchPhase(ctx, "battle"))
	_, err := e.EndTurn(ctx)
	assert.Error(t, err)
}

func TestSurrenderEndsGameAndBlocksFurtherMoves(t *testing.T) {
	ctx := context.Background()
	e, from, _, _ := smallSkirmish(t)

	require.NoError(t, e.Surrender(ctx, "north"))

	res := e.Victory(ctx)
	assert.True(t, res.State.IsTerminal())
	assert.Equal(t, board.South, res.Winner)

	to := board.Coord{Row: 1, Col: 0}
	_, err := e.Move(ctx, from.Label(), to.Label())
	assert.Error(t, err)
}

func TestDocumentRoundTripsThroughLoadDocument(t *testing.T) {
	ctx := context.Background()
	e, _, _, _ := smallSkirmish(t)

	doc := e.Document(ctx, record.Metadata{GameName: "skirmish"})
	require.NoError(t, record.Validate(doc))

	e2 := New(ctx, "pykrieg", "test")
	require.NoError(t, e2.LoadDocument(ctx, doc))

	assert.Equal(t, e.Status(ctx).Position, e2.Status(ctx).Position)
}
