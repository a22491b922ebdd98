// Package protocol implements the line-oriented external command surface
// that drives an engine.Engine: the command vocabulary a terminal front-end
// or an automated test harness speaks over stdin/stdout.
package protocol

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"

	"github.com/ssjmarx/pykrieg-go/pkg/engine"
	"github.com/ssjmarx/pykrieg-go/pkg/kriegerr"
	"github.com/ssjmarx/pykrieg-go/pkg/record"
)

const ProtocolName = "pykrieg"

// Driver reads line commands from in and writes line responses to out,
// driving a single engine.Engine until "quit" or the input channel closes.
type Driver struct {
	iox.AsyncCloser

	e   *engine.Engine
	out chan<- string

	violation atomic.Bool // set on any protocol-level (precondition/parse) failure
}

// NewDriver starts processing in a background goroutine and returns the
// driver plus its output channel, closed when the driver exits.
func NewDriver(ctx context.Context, e *engine.Engine, in <-chan string) (*Driver, <-chan string) {
	out := make(chan string, 100)
	d := &Driver{
		AsyncCloser: iox.NewAsyncCloser(),
		e:           e,
		out:         out,
	}
	go d.process(ctx, in)
	return d, out
}

// ExitCode returns 1 if any command this driver processed was a protocol
// violation (see reject and emitErr), and 0 otherwise; a command rejected
// by the engine as a rule violation does not count. This is the exit code
// a front-end's main should propagate on clean stdin EOF.
func (d *Driver) ExitCode() int {
	if d.violation.Load() {
		return 1
	}
	return 0
}

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "protocol driver initialized")

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "input stream broken, exiting")
				return
			}

			parts := strings.Fields(line)
			if len(parts) == 0 {
				continue
			}

			cmd := strings.ToLower(parts[0])
			if cmd == "quit" {
				return
			}
			d.dispatch(ctx, cmd, parts[1:])

		case <-d.Closed():
			logw.Infof(ctx, "driver closed")
			return
		}
	}
}

func (d *Driver) dispatch(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "init", "new_game":
		d.handleInit(ctx, args)
	case "position":
		d.handlePosition(ctx, args)
	case "move":
		d.handleMove(ctx, args)
	case "attack":
		d.handleAttack(ctx, args)
	case "pass":
		d.handlePass(ctx, args)
	case "end_turn":
		d.handleEndTurn(ctx, args)
	case "phase":
		d.handlePhase(ctx, args)
	case "surrender":
		d.handleSurrender(ctx, args)
	case "undo":
		d.handleUndo(ctx, args)
	case "redo":
		d.handleRedo(ctx, args)
	case "set_undo_limit":
		d.handleSetUndoLimit(ctx, args)
	case "status":
		d.handleStatus(ctx, args)
	case "network":
		d.handleNetwork(ctx, args)
	case "victory":
		d.handleVictory(ctx, args)
	case "retreats":
		d.handleRetreats(ctx, args)
	default:
		d.reject(ctx, fmt.Errorf("unknown command %q", cmd))
	}
}

// reject reports a driver-level failure (bad arguments, unknown command)
// that never reached the engine. These are always protocol violations.
func (d *Driver) reject(ctx context.Context, err error) {
	d.violation.Store(true)
	logw.Warningf(ctx, "protocol: %v", err)
	d.out <- fmt.Sprintf("error %v", err)
}

// emitErr reports an error returned by the engine. A rule violation (an
// illegal move or attack the caller attempted) is a normal, expected
// outcome and does not flip the exit code; precondition, serialization, and
// consistency failures do, since those indicate the caller or a loaded
// document was malformed.
func (d *Driver) emitErr(ctx context.Context, err error) {
	if !kriegerr.Is(err, kriegerr.RuleViolation) {
		d.violation.Store(true)
	}
	logw.Warningf(ctx, "protocol: %v", err)
	d.out <- fmt.Sprintf("error %v", err)
}

func (d *Driver) handleInit(ctx context.Context, args []string) {
	if len(args) != 0 {
		d.reject(ctx, fmt.Errorf("init: unexpected arguments %v", args))
		return
	}
	if err := d.e.Reset(ctx, "startpos"); err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- "ok"
}

// handlePosition implements:
//
//	position startpos [moves <m1> <m2> ...]
//	position document <path> [moves <m1> <m2> ...]
//
// Each move token is "<from>:<to>" (square labels may contain both letters
// and digits, so a plain concatenation like chess's "e2e4" is ambiguous
// here).
func (d *Driver) handlePosition(ctx context.Context, args []string) {
	if len(args) == 0 {
		d.reject(ctx, fmt.Errorf("position: expected startpos or document"))
		return
	}

	var moves []string
	switch strings.ToLower(args[0]) {
	case "startpos":
		if err := d.e.Reset(ctx, "startpos"); err != nil {
			d.emitErr(ctx, err)
			return
		}
		moves = trimMoves(args[1:])

	case "document":
		if len(args) < 2 {
			d.reject(ctx, fmt.Errorf("position document: expected a path"))
			return
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			d.reject(ctx, fmt.Errorf("position document: %w", err))
			return
		}
		doc, err := record.Unmarshal(data)
		if err != nil {
			d.emitErr(ctx, err)
			return
		}
		if err := d.e.LoadDocument(ctx, doc); err != nil {
			d.emitErr(ctx, err)
			return
		}
		moves = trimMoves(args[2:])

	default:
		d.reject(ctx, fmt.Errorf("position: unknown position type %q", args[0]))
		return
	}

	for _, m := range moves {
		from, to, ok := strings.Cut(m, ":")
		if !ok {
			d.reject(ctx, fmt.Errorf("position: malformed move %q, expected from:to", m))
			return
		}
		if _, err := d.e.Move(ctx, from, to); err != nil {
			d.emitErr(ctx, err)
			return
		}
	}
	d.out <- "ok"
}

func trimMoves(args []string) []string {
	if len(args) == 0 || strings.ToLower(args[0]) != "moves" {
		return nil
	}
	return args[1:]
}

func (d *Driver) handleMove(ctx context.Context, args []string) {
	if len(args) != 2 {
		d.reject(ctx, fmt.Errorf("move: expected <from> <to>"))
		return
	}
	report, err := d.e.Move(ctx, args[0], args[1])
	if err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- fmt.Sprintf("move from=%v to=%v arsenal_destroyed=%v turn_ended=%v",
		report.From.Label(), report.To.Label(), report.ArsenalDestroyed, report.TurnEnded)
}

func (d *Driver) handleAttack(ctx context.Context, args []string) {
	if len(args) != 1 {
		d.reject(ctx, fmt.Errorf("attack: expected <target>"))
		return
	}
	report, err := d.e.Attack(ctx, args[0])
	if err != nil {
		d.emitErr(ctx, err)
		return
	}
	parts := []string{
		"attack",
		fmt.Sprintf("target=%v", report.Target.Label()),
		fmt.Sprintf("outcome=%v", report.Outcome),
		fmt.Sprintf("attack=%d", report.Attack),
		fmt.Sprintf("defense=%d", report.Defense),
	}
	if report.Captured {
		parts = append(parts, fmt.Sprintf("captured=%v:%v", report.CapturedOwner, report.CapturedKind))
	}
	d.out <- strings.Join(parts, " ")
}

func (d *Driver) handlePass(ctx context.Context, args []string) {
	if len(args) != 0 {
		d.reject(ctx, fmt.Errorf("pass: unexpected arguments %v", args))
		return
	}
	if err := d.e.Pass(ctx); err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- "ok"
}

func (d *Driver) handleEndTurn(ctx context.Context, args []string) {
	if len(args) != 0 {
		d.reject(ctx, fmt.Errorf("end_turn: unexpected arguments %v", args))
		return
	}
	captures, err := d.e.EndTurn(ctx)
	if err != nil {
		d.emitErr(ctx, err)
		return
	}
	if len(captures) == 0 {
		d.out <- "end_turn retreat_captures=none"
		return
	}
	labels := make([]string, len(captures))
	for i, c := range captures {
		labels[i] = fmt.Sprintf("%v:%v@%v", c.Piece.Owner, c.Piece.Kind, c.Coord.Label())
	}
	d.out <- fmt.Sprintf("end_turn retreat_captures=%v", strings.Join(labels, ","))
}

func (d *Driver) handlePhase(ctx context.Context, args []string) {
	if len(args) != 1 {
		d.reject(ctx, fmt.Errorf("phase: expected movement or battle"))
		return
	}
	if err := d.e.SwitchPhase(ctx, strings.ToLower(args[0])); err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- "ok"
}

func (d *Driver) handleSurrender(ctx context.Context, args []string) {
	if len(args) != 1 {
		d.reject(ctx, fmt.Errorf("surrender: expected <player>"))
		return
	}
	if err := d.e.Surrender(ctx, args[0]); err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- "ok"
}

func (d *Driver) handleUndo(ctx context.Context, args []string) {
	n, err := optionalCount(args)
	if err != nil {
		d.reject(ctx, fmt.Errorf("undo: %w", err))
		return
	}
	done, err := d.e.Undo(ctx, n)
	if err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- fmt.Sprintf("undo count=%d", done)
}

func (d *Driver) handleRedo(ctx context.Context, args []string) {
	n, err := optionalCount(args)
	if err != nil {
		d.reject(ctx, fmt.Errorf("redo: %w", err))
		return
	}
	done, err := d.e.Redo(ctx, n)
	if err != nil {
		d.emitErr(ctx, err)
		return
	}
	d.out <- fmt.Sprintf("redo count=%d", done)
}

func optionalCount(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	if len(args) != 1 {
		return 0, fmt.Errorf("expected at most one argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", args[0])
	}
	return n, nil
}

func (d *Driver) handleSetUndoLimit(ctx context.Context, args []string) {
	if len(args) != 1 {
		d.reject(ctx, fmt.Errorf("set_undo_limit: expected <n>"))
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		d.reject(ctx, fmt.Errorf("set_undo_limit: invalid n %q", args[0]))
		return
	}
	d.e.SetUndoLimit(ctx, n)
	d.out <- "ok"
}

func (d *Driver) handleStatus(ctx context.Context, args []string) {
	if len(args) != 0 {
		d.reject(ctx, fmt.Errorf("status: unexpected arguments %v", args))
		return
	}
	s := d.e.Status(ctx)
	d.out <- fmt.Sprintf("status turn=%v phase=%v turn_number=%d moves_made=%d attack_used=%v game_state=%v position=%v",
		s.CurrentPlayer, s.Phase, s.TurnNumber, s.MovesMade, s.AttackUsed, s.GameState, s.Position)
}

func (d *Driver) handleNetwork(ctx context.Context, args []string) {
	if len(args) != 1 {
		d.reject(ctx, fmt.Errorf("network: expected <player>"))
		return
	}
	v, err := d.e.Network(ctx, args[0])
	if err != nil {
		d.emitErr(ctx, err)
		return
	}
	b := d.e.Board()
	online := v.OnlinePieceCount(b)
	total := len(b.PiecesOf(v.Owner))
	d.out <- fmt.Sprintf("network player=%v online=%d offline=%d", v.Owner, online, total-online)
}

func (d *Driver) handleVictory(ctx context.Context, args []string) {
	if len(args) != 0 {
		d.reject(ctx, fmt.Errorf("victory: unexpected arguments %v", args))
		return
	}
	res := d.e.Victory(ctx)
	if !res.HasWinner {
		d.out <- fmt.Sprintf("victory false %v", strings.ToLower(res.State.String()))
		return
	}
	d.out <- fmt.Sprintf("victory true winner=%v condition=%v", res.Winner, res.Condition)
}

func (d *Driver) handleRetreats(ctx context.Context, args []string) {
	if len(args) != 0 {
		d.reject(ctx, fmt.Errorf("retreats: unexpected arguments %v", args))
		return
	}
	squares := d.e.Retreats(ctx)
	if len(squares) == 0 {
		d.out <- "retreats none"
		return
	}
	labels := make([]string, len(squares))
	for i, c := range squares {
		labels[i] = c.Label()
	}
	d.out <- fmt.Sprintf("retreats %v", strings.Join(labels, ","))
}
