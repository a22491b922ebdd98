// Package combat computes attack and defense power for a target square and
// resolves the outcome: FAIL, RETREAT, or CAPTURE.
package combat

import (
	"fmt"

	"github.com/ssjmarx/pykrieg-go/pkg/board"
	"github.com/ssjmarx/pykrieg-go/pkg/network"
)

// Outcome is the result of resolving attack power against defense power.
type Outcome uint8

const (
	Fail Outcome = iota
	Retreat
	Capture
)

func (o Outcome) String() string {
	switch o {
	case Fail:
		return "FAIL"
	case Retreat:
		return "RETREAT"
	case Capture:
		return "CAPTURE"
	default:
		return "?"
	}
}

var directions8 = []struct{ dr, dc int }{
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
}

type lineUnit struct {
	coord    board.Coord
	kind     board.Kind
	distance int
}

// lineUnitsOf enumerates every owner-owned piece along the ray from t in
// direction d, walking all the way to the board edge — combat lines do not
// stop at intervening pieces.
func lineUnitsOf(b *board.Board, t board.Coord, d struct{ dr, dc int }, owner board.Color) []lineUnit {
	var units []lineUnit
	cur := t
	for dist := 1; ; dist++ {
		cur = cur.Add(d.dr, d.dc)
		if !b.InBounds(cur) {
			return units
		}
		sq, err := b.At(cur)
		if err != nil {
			return units
		}
		if sq.Occupied && sq.Occupant.Owner == owner {
			units = append(units, lineUnit{coord: cur, kind: sq.Occupant.Kind, distance: dist})
		}
	}
}

// AttackPower computes attacker's total attack power against target square t,
// given attacker's own network view.
func AttackPower(b *board.Board, view *network.View, t board.Coord, attacker board.Color) (int, error) {
	targetSq, err := b.At(t)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, d := range directions8 {
		units := lineUnitsOf(b, t, d, attacker)

		var cavalry []lineUnit
		for _, u := range units {
			online := view.IsPieceOnline(b, u.coord)
			total += network.EffectiveStats(u.kind, online).Attack
			if u.kind.IsCavalry() {
				cavalry = append(cavalry, u)
			}
		}

		if len(cavalry) == 0 {
			continue
		}
		first := cavalry[0]
		if first.distance != 1 || targetSq.Terrain.BlocksCharge() {
			continue
		}
		total += 3
		prev := first.distance
		for _, u := range cavalry[1:] {
			if u.distance-prev == 1 && u.distance <= 4 {
				total += 3
				prev = u.distance
			} else {
				break
			}
		}
	}
	return total, nil
}

// DefensePower computes defender's total defense power for target square t,
// given defender's own network view.
func DefensePower(b *board.Board, view *network.View, t board.Coord, defender board.Color) (int, error) {
	targetSq, err := b.At(t)
	if err != nil {
		return 0, err
	}

	total := targetSq.Terrain.DefenseBonus()
	if targetSq.Occupied && targetSq.Occupant.Owner == defender {
		online := view.IsPieceOnline(b, t)
		total += network.EffectiveStats(targetSq.Occupant.Kind, online).Defense
	}

	for _, d := range directions8 {
		for _, u := range lineUnitsOf(b, t, d, defender) {
			online := view.IsPieceOnline(b, u.coord)
			total += network.EffectiveStats(u.kind, online).Defense
		}
	}
	return total, nil
}

// Resolve decides the outcome from attack and defense power.
func Resolve(attack, defense int) Outcome {
	switch {
	case attack <= defense:
		return Fail
	case attack == defense+1:
		return Retreat
	default:
		return Capture
	}
}

// CanAttack returns true iff at least one of attacker's pieces lies on some
// radial line to t — an empty target square is a legal attack target as
// long as this holds.
func CanAttack(b *board.Board, t board.Coord, attacker board.Color) bool {
	for _, d := range directions8 {
		if len(lineUnitsOf(b, t, d, attacker)) > 0 {
			return true
		}
	}
	return false
}

// Result is the outcome of a resolved attack, including what changed.
type Result struct {
	Target   board.Coord
	Outcome  Outcome
	Attack   int
	Defense  int
	Captured board.Piece
	Captures bool
}

// Execute computes power, resolves the outcome, and applies its board-level
// effect: CAPTURE removes the target occupant, RETREAT leaves the board
// untouched (the turn controller adds the square to the must-retreat set),
// FAIL leaves everything untouched. It never touches terrain — an arsenal
// under its captured occupant survives, only a move onto it destroys it.
func Execute(b *board.Board, attackerView, defenderView *network.View, t board.Coord, attacker, defender board.Color) (Result, error) {
	a, err := AttackPower(b, attackerView, t, attacker)
	if err != nil {
		return Result{}, err
	}
	d, err := DefensePower(b, defenderView, t, defender)
	if err != nil {
		return Result{}, err
	}

	outcome := Resolve(a, d)
	res := Result{Target: t, Outcome: outcome, Attack: a, Defense: d}

	if outcome == Capture {
		p, ok, err := b.RemovePiece(t)
		if err != nil {
			return Result{}, err
		}
		if ok {
			res.Captured = p
			res.Captures = true
		}
	}
	return res, nil
}

// ValidateAttack checks the attack-specific preconditions beyond phase and
// budget, which the turn controller checks itself: there must be a line to
// the target.
func ValidateAttack(b *board.Board, t board.Coord, attacker board.Color) error {
	if !b.InBounds(t) {
		return fmt.Errorf("combat: %v out of bounds", t)
	}
	if !CanAttack(b, t, attacker) {
		return fmt.Errorf("combat: no attacking pieces have a line to %v", t)
	}
	return nil
}
