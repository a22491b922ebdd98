// Package actionlog records reversible move, attack, and turn-boundary
// actions and provides deterministic undo/redo over them.
package actionlog

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/combat"
	"github.com/ssjmarx/pykrieg-go/pkg/turn"
)

// Kind discriminates which variant of Action is populated.
type Kind uint8

const (
	MoveKind Kind = iota
	AttackKind
	TurnBoundaryKind
)

// MoveAction is the reversible record of a single move.
type MoveAction struct {
	From, To         board.Coord
	PieceID          uuid.UUID
	PieceKind        board.Kind
	Owner            board.Color
	WasRetreat       bool
	ArsenalDestroyed bool
	ArsenalOwner     board.Color
}

// AttackAction is the reversible record of a single attack, or of passing
// the attack slot without attacking (Passed true, every other field zero).
type AttackAction struct {
	Target           board.Coord
	Outcome          combat.Outcome
	Attacker         board.Color
	Passed           bool
	HasCaptured      bool
	CapturedKind     board.Kind
	CapturedOwner    board.Color
	RetreatPositions []board.Coord
}

// TurnBoundaryAction is the reversible record of ending a turn.
type TurnBoundaryAction struct {
	Boundary        turn.Boundary
	RetreatCaptures []turn.RetreatCapture
}

// Action is one of Move, Attack, or TurnBoundary — exactly one pointer is
// non-nil, selected by Kind.
type Action struct {
	Kind         Kind
	Move         *MoveAction
	Attack       *AttackAction
	TurnBoundary *TurnBoundaryAction
}

// Log is the undo/redo manager: an append-only history plus a push/pop undo
// stack and a redo stack cleared on every new recording. maxHistory caps the
// history length; 0 means unlimited. A ring-buffer cap rather than an LRU
// cache, since undo/redo needs strict chronological push/pop order and
// occasional full-stack replay (redo), not recency-based eviction.
type Log struct {
	history    []Action
	undoStack  []Action
	redoStack  []Action
	maxHistory int
}

// NewLog returns an empty log. maxHistory <= 0 means unlimited.
func NewLog(maxHistory int) *Log {
	return &Log{maxHistory: maxHistory}
}

// Record appends a new action, pushes it onto the undo stack, and clears the
// redo stack — the conventional undo/redo invariant that taking a new action
// after undoing abandons the undone branch.
func (l *Log) Record(a Action) {
	l.history = append(l.history, a)
	l.undoStack = append(l.undoStack, a)
	l.redoStack = nil

	if l.maxHistory > 0 && len(l.history) > l.maxHistory {
		l.history = l.history[1:]
		if len(l.undoStack) > l.maxHistory {
			l.undoStack = l.undoStack[1:]
		}
	}
}

func (l *Log) CanUndo() bool     { return len(l.undoStack) > 0 }
func (l *Log) CanRedo() bool     { return len(l.redoStack) > 0 }
func (l *Log) HistorySize() int  { return len(l.history) }
func (l *Log) UndoDepth() int    { return len(l.undoStack) }
func (l *Log) RedoDepth() int    { return len(l.redoStack) }

// SetMaxHistory changes the history cap going forward. It does not trim
// existing history retroactively; 0 means unlimited.
func (l *Log) SetMaxHistory(n int) {
	l.maxHistory = n
}

// Clear drops all history, undo, and redo state — called on load of a fresh
// game-record document.
func (l *Log) Clear() {
	l.history = nil
	l.undoStack = nil
	l.redoStack = nil
}

// Undo reverses the most recent action and pushes it onto the redo stack.
func (l *Log) Undo(b *board.Board, s *turn.State) (Action, error) {
	if !l.CanUndo() {
		return Action{}, fmt.Errorf("actionlog: no action to undo")
	}
	a := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]

	if err := undoOne(b, s, a); err != nil {
		return Action{}, err
	}
	l.redoStack = append(l.redoStack, a)
	return a, nil
}

// Redo re-applies the most recently undone action and pushes it back onto
// the undo stack.
func (l *Log) Redo(b *board.Board, s *turn.State) (Action, error) {
	if !l.CanRedo() {
		return Action{}, fmt.Errorf("actionlog: no action to redo")
	}
	a := l.redoStack[len(l.redoStack)-1]
	l.redoStack = l.redoStack[:len(l.redoStack)-1]

	if err := redoOne(b, s, a); err != nil {
		return Action{}, err
	}
	l.undoStack = append(l.undoStack, a)
	return a, nil
}

func undoOne(b *board.Board, s *turn.State, a Action) error {
	switch a.Kind {
	case MoveKind:
		return undoMove(b, s, a.Move)
	case AttackKind:
		return undoAttack(b, s, a.Attack)
	case TurnBoundaryKind:
		return undoTurnBoundary(b, s, a.TurnBoundary)
	default:
		return fmt.Errorf("actionlog: unknown action kind %v", a.Kind)
	}
}

func redoOne(b *board.Board, s *turn.State, a Action) error {
	switch a.Kind {
	case MoveKind:
		return redoMove(b, s, a.Move)
	case AttackKind:
		return redoAttack(b, s, a.Attack)
	case TurnBoundaryKind:
		return redoTurnBoundary(b, s, a.TurnBoundary)
	default:
		return fmt.Errorf("actionlog: unknown action kind %v", a.Kind)
	}
}

func undoMove(b *board.Board, s *turn.State, a *MoveAction) error {
	if _, err := b.MovePiece(a.To, a.From); err != nil {
		return err
	}
	if a.ArsenalDestroyed {
		if err := b.SetTerrain(a.To, board.Arsenal, a.ArsenalOwner); err != nil {
			return err
		}
	}
	delete(s.MovedPieces, a.PieceID)
	for i, m := range s.MovesMade {
		if m.From == a.From && m.To == a.To {
			s.MovesMade = append(s.MovesMade[:i], s.MovesMade[i+1:]...)
			break
		}
	}
	if a.WasRetreat {
		s.RetreatingNow[a.From] = true
	}
	return nil
}

func redoMove(b *board.Board, s *turn.State, a *MoveAction) error {
	if _, err := b.MovePiece(a.From, a.To); err != nil {
		return err
	}
	if a.ArsenalDestroyed {
		if err := b.SetTerrain(a.To, board.Flat, board.North); err != nil {
			return err
		}
	}
	s.MovedPieces[a.PieceID] = true
	s.MovesMade = append(s.MovesMade, board.Move{From: a.From, To: a.To})
	if a.WasRetreat {
		delete(s.RetreatingNow, a.From)
	}
	return nil
}

// undoAttack restores a captured piece (with a freshly allocated identity —
// the original is gone, matching how the source's own undo recreates the
// unit rather than preserving its id) and removes the retreat markers this
// attack added.
func undoAttack(b *board.Board, s *turn.State, a *AttackAction) error {
	if a.HasCaptured {
		if err := b.PlacePiece(a.Target, board.NewPiece(a.CapturedKind, a.CapturedOwner)); err != nil {
			return err
		}
	}
	for _, pos := range a.RetreatPositions {
		delete(s.MustRetreat, pos)
	}
	s.Attack = turn.AttackSlot{}
	return nil
}

func redoAttack(b *board.Board, s *turn.State, a *AttackAction) error {
	if a.HasCaptured {
		if _, _, err := b.RemovePiece(a.Target); err != nil {
			return err
		}
	}
	for _, pos := range a.RetreatPositions {
		s.MustRetreat[pos] = true
	}
	if a.Passed {
		s.Attack = turn.AttackSlot{Used: true}
	} else {
		s.Attack = turn.AttackSlot{Used: true, HasTarget: true, Target: a.Target}
	}
	return nil
}

func undoTurnBoundary(b *board.Board, s *turn.State, a *TurnBoundaryAction) error {
	bd := a.Boundary
	s.CurrentPlayer = bd.PriorPlayer
	s.TurnNumber = bd.PriorTurnNumber
	s.Phase = bd.PriorPhase
	s.MovesMade = append([]board.Move(nil), bd.PriorMoves...)
	s.Attack = bd.PriorAttack
	s.MustRetreat = make(map[board.Coord]bool, len(bd.PriorMustRetreat))
	for c, v := range bd.PriorMustRetreat {
		s.MustRetreat[c] = v
	}
	s.RetreatingNow = map[board.Coord]bool{}

	for _, rc := range a.RetreatCaptures {
		if err := b.PlacePiece(rc.Coord, board.NewPiece(rc.Piece.Kind, rc.Piece.Owner)); err != nil {
			return err
		}
	}
	return nil
}

func redoTurnBoundary(b *board.Board, s *turn.State, a *TurnBoundaryAction) error {
	bd := a.Boundary
	s.CurrentPlayer = bd.NextPlayer
	s.TurnNumber = bd.NextTurnNumber
	s.Phase = board.Movement
	s.MovesMade = nil
	s.MovedPieces = map[uuid.UUID]bool{}
	s.Attack = turn.AttackSlot{}
	s.RetreatingNow = map[board.Coord]bool{}

	s.MustRetreat = make(map[board.Coord]bool, len(bd.PriorMustRetreat))
	for c, v := range bd.PriorMustRetreat {
		s.MustRetreat[c] = v
	}
	for _, rc := range a.RetreatCaptures {
		delete(s.MustRetreat, rc.Coord)
		if _, _, err := b.RemovePiece(rc.Coord); err != nil {
			return err
		}
	}
	for c := range s.MustRetreat {
		s.RetreatingNow[c] = true
		delete(s.MustRetreat, c)
	}
	return nil
}
