// Package victory evaluates the three victory conditions — total
// annihilation, network collapse, and surrender — and produces the sticky
// terminal game state.
package victory

import (
	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/network"
)

// Condition names which specific rule ended the game for the losing side.
type Condition uint8

const (
	NoCondition Condition = iota
	TotalAnnihilation
	NetworkCollapse
	Surrender
)

func (c Condition) String() string {
	switch c {
	case TotalAnnihilation:
		return "TOTAL_ANNIHILATION"
	case NetworkCollapse:
		return "NETWORK_COLLAPSE"
	case Surrender:
		return "SURRENDER"
	default:
		return "NONE"
	}
}

// Result is the outcome of a victory evaluation.
type Result struct {
	State     board.GameState
	Winner    board.Color // meaningful only when State is a win, not Draw/Ongoing
	HasWinner bool
	Condition Condition
	Details   string
}

// IsAnnihilated returns true iff player has zero pieces of any kind.
func IsAnnihilated(b *board.Board, player board.Color) bool {
	return len(b.PiecesOf(player)) == 0
}

// IsNetworkCollapsed returns true iff player has at least one piece and
// either has zero arsenals or zero online pieces. networkActive gates the
// whole check: a game that has never computed a network (e.g. a
// board-only position loaded mid-setup) cannot have collapsed yet.
func IsNetworkCollapsed(b *board.Board, view *network.View, player board.Color, networkActive bool) bool {
	if !networkActive {
		return false
	}
	if len(b.PiecesOf(player)) == 0 {
		return false
	}
	if len(b.Arsenals(player)) == 0 {
		return true
	}
	return view.OnlinePieceCount(b) == 0
}

// Evaluate checks annihilation and network-collapse for both players and
// applies the priority rule: total annihilation outranks network collapse
// as the labelled cause when a player is defeated by both; if both players
// are defeated on the same evaluation, the result is a draw.
func Evaluate(b *board.Board, northView, southView *network.View, networkActive bool) Result {
	northAnnihilated := IsAnnihilated(b, board.North)
	northCollapsed := IsNetworkCollapsed(b, northView, board.North, networkActive)
	southAnnihilated := IsAnnihilated(b, board.South)
	southCollapsed := IsNetworkCollapsed(b, southView, board.South, networkActive)

	northDefeated := northAnnihilated || northCollapsed
	southDefeated := southAnnihilated || southCollapsed

	switch {
	case !northDefeated && !southDefeated:
		return Result{State: board.Ongoing, Details: "game is ongoing"}
	case northDefeated && !southDefeated:
		cond := NetworkCollapse
		details := "SOUTH wins: NORTH's network has collapsed (all units offline or arsenals destroyed)"
		if northAnnihilated {
			cond = TotalAnnihilation
			details = "SOUTH wins: NORTH's forces have been totally annihilated"
		}
		return Result{State: board.SouthWins, Winner: board.South, HasWinner: true, Condition: cond, Details: details}
	case southDefeated && !northDefeated:
		cond := NetworkCollapse
		details := "NORTH wins: SOUTH's network has collapsed (all units offline or arsenals destroyed)"
		if southAnnihilated {
			cond = TotalAnnihilation
			details = "NORTH wins: SOUTH's forces have been totally annihilated"
		}
		return Result{State: board.NorthWins, Winner: board.North, HasWinner: true, Condition: cond, Details: details}
	default:
		return Result{State: board.Draw, Details: "draw: both players lost simultaneously"}
	}
}

// Surrender produces the terminal result for an explicit surrender by
// `player` — it overrides every other signal for that player.
func Surrender(player board.Color) Result {
	winner := player.Opponent()
	state := board.NorthWins
	if winner == board.South {
		state = board.SouthWins
	}
	return Result{
		State:     state,
		Winner:    winner,
		HasWinner: true,
		Condition: Surrender,
		Details:   player.String() + " surrendered",
	}
}
