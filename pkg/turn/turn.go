// Package turn implements the turn/phase state machine: per-turn move and
// attack budgets, phase transitions, retreat resolution at turn-start, and
// the bookkeeping the movement and combat packages need but do not own.
package turn

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/combat"
	"github.com/ssjmarx/pykrieg-go/pkg/movement"
	"github.com/ssjmarx/pykrieg-go/pkg/network"
)

const maxMovesPerTurn = 5

// AttackSlot tracks the single attack-or-pass action allowed in Battle.
type AttackSlot struct {
	Used      bool
	HasTarget bool
	Target    board.Coord
}

// State is the complete turn/phase state for a game in progress. It has no
// board of its own — every operation takes the board and a freshly computed
// network.View for the acting/defending side as arguments, since recomputing
// the network after a mutation is the caller's job (spec.md's "network
// propagator is invalidated, lazily recomputed").
type State struct {
	CurrentPlayer board.Color
	TurnNumber    int
	Phase         board.Phase

	MovesMade   []board.Move
	MovedPieces map[uuid.UUID]bool
	Attack      AttackSlot

	MustRetreat   map[board.Coord]bool
	RetreatingNow map[board.Coord]bool

	GameState board.GameState
}

// NewState returns the initial turn state: NORTH to move, turn 1, Movement phase.
func NewState() *State {
	return &State{
		CurrentPlayer: board.North,
		TurnNumber:    1,
		Phase:         board.Movement,
		MovedPieces:   map[uuid.UUID]bool{},
		MustRetreat:   map[board.Coord]bool{},
		RetreatingNow: map[board.Coord]bool{},
		GameState:     board.Ongoing,
	}
}

// Context builds the read-only movement.Context the movement package needs,
// reflecting the current state.
func (s *State) Context() movement.Context {
	return movement.Context{
		CurrentPlayer: s.CurrentPlayer,
		Phase:         s.Phase,
		MovesMade:     len(s.MovesMade),
		MovedPieces:   s.MovedPieces,
		MustRetreat:   s.MustRetreat,
		RetreatingNow: s.RetreatingNow,
		GameOver:      s.GameState.IsTerminal(),
	}
}

func (s *State) requireOngoing() error {
	if s.GameState.IsTerminal() {
		return fmt.Errorf("turn: game is over (%v)", s.GameState)
	}
	return nil
}

// ExecuteMove validates and performs a move for the current player. Returns
// the movement result and whether this move ended the turn outright (moving
// onto an enemy arsenal skips the rest of the turn, per spec.md §4.4 rule 4).
func (s *State) ExecuteMove(b *board.Board, view *network.View, from, to board.Coord) (movement.Result, bool, error) {
	if err := s.requireOngoing(); err != nil {
		return movement.Result{}, false, err
	}
	if err := movement.ValidateMove(b, view, s.Context(), from, to); err != nil {
		return movement.Result{}, false, err
	}

	sq, err := b.At(from)
	if err != nil {
		return movement.Result{}, false, err
	}
	piece := sq.Occupant

	res, err := movement.Execute(b, from, to)
	if err != nil {
		return movement.Result{}, false, err
	}

	s.MovesMade = append(s.MovesMade, board.Move{From: from, To: to})
	s.MovedPieces[piece.ID] = true
	if s.RetreatingNow[from] {
		delete(s.RetreatingNow, from)
	}

	if res.ArsenalDestroyed {
		return res, true, nil
	}
	return res, false, nil
}

// SwitchToBattle transitions Movement -> Battle. Rejected while any piece is
// still discharging a retreat obligation.
func (s *State) SwitchToBattle() error {
	if err := s.requireOngoing(); err != nil {
		return err
	}
	if s.Phase != board.Movement {
		return fmt.Errorf("turn: not in movement phase")
	}
	if len(s.RetreatingNow) > 0 {
		return fmt.Errorf("turn: retreating pieces must move before switching to battle")
	}
	s.Phase = board.Battle
	return nil
}

// ExecuteAttack validates and resolves an attack against t, consuming the
// turn's single attack slot. If the outcome is RETREAT, t is added to
// must-retreat — it will be resolved at the defender's next turn-start,
// which (in a two-player alternating game) is the very next turn.
func (s *State) ExecuteAttack(b *board.Board, attackerView, defenderView *network.View, t board.Coord, defender board.Color) (combat.Result, error) {
	if err := s.requireOngoing(); err != nil {
		return combat.Result{}, err
	}
	if s.Phase != board.Battle {
		return combat.Result{}, fmt.Errorf("turn: not in battle phase")
	}
	if s.Attack.Used {
		return combat.Result{}, fmt.Errorf("turn: attack already used this turn")
	}
	if len(s.RetreatingNow) > 0 {
		return combat.Result{}, fmt.Errorf("turn: retreating pieces must move before attacking")
	}
	if err := combat.ValidateAttack(b, t, s.CurrentPlayer); err != nil {
		return combat.Result{}, err
	}

	res, err := combat.Execute(b, attackerView, defenderView, t, s.CurrentPlayer, defender)
	if err != nil {
		return combat.Result{}, err
	}

	s.Attack = AttackSlot{Used: true, HasTarget: true, Target: t}
	if res.Outcome == combat.Retreat {
		s.MustRetreat[t] = true
	}
	return res, nil
}

// Pass consumes the attack slot without attacking.
func (s *State) Pass() error {
	if err := s.requireOngoing(); err != nil {
		return err
	}
	if s.Phase != board.Battle {
		return fmt.Errorf("turn: not in battle phase")
	}
	if s.Attack.Used {
		return fmt.Errorf("turn: attack already used this turn")
	}
	s.Attack = AttackSlot{Used: true}
	return nil
}

// CanEndTurn reports whether the turn may be ended: freely during Movement,
// only after an attack-or-pass during Battle.
func (s *State) CanEndTurn() bool {
	if s.Phase == board.Battle {
		return s.Attack.Used
	}
	return true
}

// Boundary summarizes the state that was true immediately before EndTurn
// advanced it, for the action log's turn-boundary record.
type Boundary struct {
	PriorPlayer      board.Color
	PriorTurnNumber  int
	PriorPhase       board.Phase
	PriorMoves       []board.Move
	PriorAttack      AttackSlot
	PriorMustRetreat map[board.Coord]bool
	NextPlayer       board.Color
	NextTurnNumber   int
}

// RetreatCapture records a piece removed by retreat resolution, along with
// the square it occupied — the action log needs both to restore it on undo.
type RetreatCapture struct {
	Coord board.Coord
	Piece board.Piece
}

func cloneCoordSet(m map[board.Coord]bool) map[board.Coord]bool {
	out := make(map[board.Coord]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EndTurn advances to the next player's turn: snapshots the boundary,
// resets per-turn bookkeeping, and resolves retreats for the new current
// player against the freshly supplied view of their own network. Returns
// the boundary record and every piece captured by retreat resolution.
func (s *State) EndTurn(b *board.Board, nextPlayerView *network.View) (Boundary, []RetreatCapture, error) {
	if err := s.requireOngoing(); err != nil {
		return Boundary{}, nil, err
	}
	if !s.CanEndTurn() {
		return Boundary{}, nil, fmt.Errorf("turn: must attack or pass before ending turn in battle phase")
	}

	boundary := Boundary{
		PriorPlayer:      s.CurrentPlayer,
		PriorTurnNumber:  s.TurnNumber,
		PriorPhase:       s.Phase,
		PriorMoves:       s.MovesMade,
		PriorAttack:      s.Attack,
		PriorMustRetreat: cloneCoordSet(s.MustRetreat),
	}

	s.CurrentPlayer = s.CurrentPlayer.Opponent()
	s.TurnNumber++
	s.Phase = board.Movement
	s.MovesMade = nil
	s.MovedPieces = map[uuid.UUID]bool{}
	s.Attack = AttackSlot{}

	boundary.NextPlayer = s.CurrentPlayer
	boundary.NextTurnNumber = s.TurnNumber

	captured, err := s.resolveRetreats(b, nextPlayerView)
	if err != nil {
		return Boundary{}, nil, err
	}
	return boundary, captured, nil
}

// resolveRetreats implements spec.md §4.6 for the player whose turn is
// starting: each must-retreat piece either has a legal retreat destination
// (moved into retreating-now, to be resolved by the player this turn) or it
// doesn't (captured immediately).
func (s *State) resolveRetreats(b *board.Board, view *network.View) ([]RetreatCapture, error) {
	var captured []RetreatCapture
	for sq := range s.MustRetreat {
		dests, err := movement.GenerateLegalMoves(b, view, sq)
		if err != nil {
			return nil, err
		}
		// An offline piece other than a relay may not move at all, so it has
		// no legal retreat whatever squares are geometrically reachable.
		if psq, err := b.At(sq); err == nil && !view.IsPieceOnline(b, sq) && !psq.Occupant.Kind.IsRelay() {
			dests = nil
		}
		delete(s.MustRetreat, sq)
		if len(dests) == 0 {
			p, ok, err := b.RemovePiece(sq)
			if err != nil {
				return nil, err
			}
			if ok {
				captured = append(captured, RetreatCapture{Coord: sq, Piece: p})
			}
			continue
		}
		s.RetreatingNow[sq] = true
	}
	return captured, nil
}
