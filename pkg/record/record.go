// Package record implements the game-record document: a JSON document
// capturing a complete game — current board, turn state, and full turn
// history — suitable for saving, loading, and replay.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/maloquacious/semver"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/combat"
)

// FormatVersion is the semver-like version stamped into every document this
// package writes. Older documents with a different major version are still
// parseable; Validate does not reject on version mismatch, only on
// structural errors — version is informational for now.
var FormatVersion = semver.Version{Major: 1, Minor: 0, Patch: 0}.String()

// Document is the root of a saved game record.
type Document struct {
	FormatVersion string        `json:"format_version"`
	Metadata      Metadata      `json:"metadata"`
	BoardInfo     BoardInfo     `json:"board_info"`
	GameState     GameState     `json:"game_state"`
	TurnHistory   []TurnRecord  `json:"turn_history"`
	UndoRedoState *UndoRedoCursor `json:"undo_redo_state,omitempty"`
}

// Metadata is free-form game identification, not consulted by Validate
// beyond Result.
type Metadata struct {
	GameName  string  `json:"game_name"`
	SavedAt   string  `json:"saved_at"`
	CreatedAt string  `json:"created_at"`
	Players   Players `json:"players"`
	Event     string  `json:"event"`
	Result    string  `json:"result"` // ONGOING, NORTH_WINS, SOUTH_WINS, DRAW
}

// Players names the two sides. Either name may be empty (anonymous/local play).
type Players struct {
	North string `json:"north"`
	South string `json:"south"`
}

// BoardInfo carries the board's dimensions and its current position as a
// board-only compact encoding (pkg/board/kfen).
type BoardInfo struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Board string `json:"board"`
}

// RetreatSquare is a must-retreat square, by raw row/col — mirrors the
// board-only encoding's retreats token, not a spreadsheet label.
type RetreatSquare struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GameState is the live turn state at the moment the document was saved.
type GameState struct {
	TurnNumber      int             `json:"turn_number"`
	CurrentPlayer   string          `json:"current_player"` // NORTH or SOUTH
	CurrentPhase    string          `json:"current_phase"`  // MOVEMENT or BATTLE
	PendingRetreats []RetreatSquare `json:"pending_retreats"`
}

// MoveRecord is one executed move within a turn.
type MoveRecord struct {
	From             string `json:"from"`
	To               string `json:"to"`
	ArsenalDestroyed bool   `json:"arsenal_destroyed,omitempty"`
}

// PhaseChangeRecord marks the Movement -> Battle transition within a turn.
type PhaseChangeRecord struct {
	ToPhase string `json:"to_phase"`
}

// CapturedPieceRecord names a piece removed from the board.
type CapturedPieceRecord struct {
	Kind  string `json:"kind"`
	Owner string `json:"owner"`
}

// AttackRecord is the single attack-or-pass action of a turn's Battle phase.
type AttackRecord struct {
	Target   string               `json:"target,omitempty"`
	Passed   bool                 `json:"passed,omitempty"`
	Outcome  string               `json:"outcome,omitempty"`
	Captured *CapturedPieceRecord `json:"captured,omitempty"`
}

// RetreatCaptureRecord is a piece removed by retreat resolution at the
// start of the turn that follows.
type RetreatCaptureRecord struct {
	Square string              `json:"square"`
	Piece  CapturedPieceRecord `json:"piece"`
}

// EndTurnRecord is the outcome of advancing past this turn: every piece
// retreat resolution captured for the player whose turn follows.
type EndTurnRecord struct {
	RetreatCaptures []RetreatCaptureRecord `json:"retreat_captures,omitempty"`
}

// TurnRecord is one player's complete turn.
type TurnRecord struct {
	TurnNumber int                `json:"turn_number"`
	Player     string             `json:"player"` // NORTH or SOUTH
	Phase      string             `json:"phase"`  // MOVEMENT or BATTLE, phase turn ended in
	Moves      []MoveRecord       `json:"moves"`
	PhaseChange *PhaseChangeRecord `json:"phase_change,omitempty"`
	Attack     *AttackRecord      `json:"attack,omitempty"`
	EndTurn    *EndTurnRecord     `json:"end_turn,omitempty"`
}

// UndoRedoCursor mirrors the action log's cursor — history depth and how
// far into it undo/redo currently sit — so loading a document preserves
// replay position without re-serializing every action a second time (the
// full sequence of actions is already reconstructable from TurnHistory).
type UndoRedoCursor struct {
	HistorySize int `json:"history_size"`
	UndoDepth   int `json:"undo_depth"`
	RedoDepth   int `json:"redo_depth"`
}

// Marshal renders doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses data into a Document and validates it. A structurally
// malformed or semantically inconsistent document is rejected with the
// first detected problem.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("record: malformed document: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural invariants spec.md §6.2 requires on load:
// turn numbers form 1, 2, 3, …; players alternate starting with NORTH;
// at most 5 moves per turn; valid phase and result codes.
func Validate(doc *Document) error {
	if _, ok := board.ParseGameState(doc.Metadata.Result); !ok {
		return fmt.Errorf("record: invalid result code %q", doc.Metadata.Result)
	}

	expectedPlayer := board.North
	for i, t := range doc.TurnHistory {
		if t.TurnNumber != i+1 {
			return fmt.Errorf("record: turn_history[%d]: expected turn number %d, got %d", i, i+1, t.TurnNumber)
		}
		player, ok := board.ParseColor(t.Player)
		if !ok {
			return fmt.Errorf("record: turn_history[%d]: invalid player %q", i, t.Player)
		}
		if player != expectedPlayer {
			return fmt.Errorf("record: turn_history[%d]: expected player %v, got %v", i, expectedPlayer, player)
		}
		expectedPlayer = expectedPlayer.Opponent()

		if _, ok := parsePhaseCode(t.Phase); !ok {
			return fmt.Errorf("record: turn_history[%d]: invalid phase %q", i, t.Phase)
		}
		if len(t.Moves) > 5 {
			return fmt.Errorf("record: turn_history[%d]: %d moves exceeds the 5-move limit", i, len(t.Moves))
		}
		if t.Attack != nil && t.Attack.Outcome != "" {
			if _, ok := parseOutcomeCode(t.Attack.Outcome); !ok {
				return fmt.Errorf("record: turn_history[%d]: invalid attack outcome %q", i, t.Attack.Outcome)
			}
		}
	}

	if _, ok := parsePhaseCode(doc.GameState.CurrentPhase); !ok {
		return fmt.Errorf("record: game_state: invalid phase %q", doc.GameState.CurrentPhase)
	}
	if _, ok := board.ParseColor(doc.GameState.CurrentPlayer); !ok {
		return fmt.Errorf("record: game_state: invalid current player %q", doc.GameState.CurrentPlayer)
	}

	return nil
}

func phaseCode(p board.Phase) string {
	if p == board.Battle {
		return "BATTLE"
	}
	return "MOVEMENT"
}

func parsePhaseCode(s string) (board.Phase, bool) {
	switch s {
	case "MOVEMENT":
		return board.Movement, true
	case "BATTLE":
		return board.Battle, true
	default:
		return 0, false
	}
}

func outcomeCode(o combat.Outcome) string {
	return o.String()
}

func parseOutcomeCode(s string) (combat.Outcome, bool) {
	switch s {
	case "FAIL":
		return combat.Fail, true
	case "RETREAT":
		return combat.Retreat, true
	case "CAPTURE":
		return combat.Capture, true
	default:
		return 0, false
	}
}
