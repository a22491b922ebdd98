// Package kfen implements the board-only compact encoding: a one-line
// textual representation of board state plus turn metadata, and the
// shorter board-only variant for embedding in richer documents.
package kfen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
)

// Document is the turn-metadata half of the full encoding — everything
// besides the board rows themselves.
type Document struct {
	Player          board.Color
	Phase           board.Phase
	Moves           []board.Move // meaningful only when Phase == Movement
	AttackUsed      bool         // meaningful only when Phase == Battle
	HasAttackTarget bool
	AttackTarget    board.Coord
	TurnNumber      int
	Retreats        []board.Coord
}

// Encode renders b and doc as the full encoding:
// <board>/<turn>/<phase>/<actions>/<turn_number>/<retreats>.
func Encode(b *board.Board, doc Document) string {
	parts := encodeRows(b)
	parts = append(parts,
		colorToken(doc.Player),
		doc.Phase.String(),
		actionsToken(doc),
		strconv.Itoa(doc.TurnNumber),
		retreatsToken(doc.Retreats),
	)
	return strings.Join(parts, "/")
}

// EncodeBoard renders only the row tokens, with no turn metadata, for
// embedding in richer documents.
func EncodeBoard(b *board.Board) string {
	return strings.Join(encodeRows(b), "/")
}

func encodeRows(b *board.Board) []string {
	rows := make([]string, b.Rows())
	for r := 0; r < b.Rows(); r++ {
		var sb strings.Builder
		for c := 0; c < b.Cols(); c++ {
			sq, _ := b.At(board.Coord{Row: r, Col: c}) // always in bounds
			sb.WriteString(encodeSquare(sq))
		}
		rows[r] = sb.String()
	}
	return rows
}

func encodeSquare(sq board.Square) string {
	letter := func() string {
		l := sq.Occupant.Kind.String()
		if sq.Occupant.Owner == board.South {
			l = strings.ToLower(l)
		}
		return l
	}

	switch sq.Terrain {
	case board.Mountain:
		return "m"
	case board.MountainPass:
		if !sq.Occupied {
			return "p"
		}
		return "(" + letter() + ")"
	case board.Fortress:
		if !sq.Occupied {
			return "f"
		}
		return "[" + letter() + "]"
	case board.Arsenal:
		owner := "A"
		if sq.ArsenalOwner == board.South {
			owner = "a"
		}
		if !sq.Occupied {
			return owner
		}
		return owner + "{" + letter() + "}"
	default: // Flat
		if !sq.Occupied {
			return "_"
		}
		return letter()
	}
}

func colorToken(c board.Color) string {
	if c == board.South {
		return "S"
	}
	return "N"
}

func actionsToken(doc Document) string {
	if doc.Phase == board.Battle {
		switch {
		case !doc.AttackUsed:
			return "[]"
		case doc.HasAttackTarget:
			return doc.AttackTarget.Label()
		default:
			return "pass"
		}
	}
	if len(doc.Moves) == 0 {
		return "[]"
	}
	parts := make([]string, len(doc.Moves))
	for i, m := range doc.Moves {
		parts[i] = fmt.Sprintf("(%s,%s)", m.From.Label(), m.To.Label())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func retreatsToken(retreats []board.Coord) string {
	if len(retreats) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(retreats)*2)
	for _, c := range retreats {
		parts = append(parts, strconv.Itoa(c.Row), strconv.Itoa(c.Col))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
