// Package console implements a terminal driver for local, interactive play
// and debugging: commands that change the board (reset, move, attack,
// end_turn, undo, redo) print the resulting board instead of a terse
// protocol line.
package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"

	"github.com/ssjmarx/pykrieg-go/pkg/board/kfen"
	"github.com/ssjmarx/pykrieg-go/pkg/engine"
)

const ProtocolName = "console"

// Driver implements a console driver for local, interactive play.
type Driver struct {
	iox.AsyncCloser

	e *engine.Engine

	out chan<- string
}

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

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "Console driver initialized")

	d.out <- fmt.Sprintf("engine %v (%v)", d.e.Name(), d.e.Author())
	d.printBoard(ctx)

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "Input stream broken. Exiting")
				return
			}

			parts := strings.Fields(line)
			if len(parts) == 0 {
				break
			}
			cmd := strings.ToLower(parts[0])
			args := parts[1:]

			switch cmd {
			case "reset", "r":
				// reset [<encoding>] -- encoding is the single-token board-only
				// or full compact encoding, with no internal whitespace.
				pos := "startpos"
				if len(args) > 0 {
					pos = args[0]
				}
				if err := d.e.Reset(ctx, pos); err != nil {
					d.out <- fmt.Sprintf("invalid position: %v", err)
					break
				}
				d.printBoard(ctx)

			case "move", "m":
				if len(args) != 2 {
					d.out <- "usage: move <from> <to>"
					break
				}
				if _, err := d.e.Move(ctx, args[0], args[1]); err != nil {
					d.out <- fmt.Sprintf("invalid move: %v", err)
					break
				}
				d.printBoard(ctx)

			case "attack":
				if len(args) != 1 {
					d.out <- "usage: attack <target>"
					break
				}
				report, err := d.e.Attack(ctx, args[0])
				if err != nil {
					d.out <- fmt.Sprintf("invalid attack: %v", err)
					break
				}
				d.out <- fmt.Sprintf("%v: attack %d vs defense %d", report.Outcome, report.Attack, report.Defense)
				d.printBoard(ctx)

			case "pass":
				if err := d.e.Pass(ctx); err != nil {
					d.out <- fmt.Sprintf("invalid pass: %v", err)
				}

			case "phase":
				if len(args) != 1 {
					d.out <- "usage: phase <movement|battle>"
					break
				}
				if err := d.e.SwitchPhase(ctx, args[0]); err != nil {
					d.out <- fmt.Sprintf("invalid phase switch: %v", err)
				}

			case "end_turn", "end":
				captures, err := d.e.EndTurn(ctx)
				if err != nil {
					d.out <- fmt.Sprintf("cannot end turn: %v", err)
					break
				}
				for _, c := range captures {
					d.out <- fmt.Sprintf("%v's %v at %v lost to unresolved retreat", c.Piece.Owner, c.Piece.Kind, c.Coord)
				}
				d.printBoard(ctx)

			case "surrender":
				if len(args) != 1 {
					d.out <- "usage: surrender <player>"
					break
				}
				if err := d.e.Surrender(ctx, args[0]); err != nil {
					d.out <- fmt.Sprintf("invalid surrender: %v", err)
				}

			case "undo", "u":
				n := countArg(args)
				done, err := d.e.Undo(ctx, n)
				if err != nil {
					d.out <- fmt.Sprintf("cannot undo: %v", err)
					break
				}
				d.out <- fmt.Sprintf("undid %d", done)
				d.printBoard(ctx)

			case "redo":
				n := countArg(args)
				done, err := d.e.Redo(ctx, n)
				if err != nil {
					d.out <- fmt.Sprintf("cannot redo: %v", err)
					break
				}
				d.out <- fmt.Sprintf("redid %d", done)
				d.printBoard(ctx)

			case "print", "p":
				d.printBoard(ctx)

			case "status", "s":
				st := d.e.Status(ctx)
				d.out <- fmt.Sprintf("turn %d: %v to move, %v phase, %v moves made, game %v", st.TurnNumber, st.CurrentPlayer, st.Phase, st.MovesMade, st.GameState)

			case "network", "n":
				if len(args) != 1 {
					d.out <- "usage: network <player>"
					break
				}
				v, err := d.e.Network(ctx, args[0])
				if err != nil {
					d.out <- fmt.Sprintf("invalid network query: %v", err)
					break
				}
				b := d.e.Board()
				online := v.OnlinePieceCount(b)
				d.out <- fmt.Sprintf("%v: %d online, %d offline", v.Owner, online, len(b.PiecesOf(v.Owner))-online)

			case "victory", "v":
				res := d.e.Victory(ctx)
				if !res.HasWinner {
					d.out <- fmt.Sprintf("ongoing (%v)", res.State)
					break
				}
				d.out <- fmt.Sprintf("%v wins by %v", res.Winner, res.Condition)

			case "retreats":
				squares := d.e.Retreats(ctx)
				if len(squares) == 0 {
					d.out <- "no pending retreats"
					break
				}
				labels := make([]string, len(squares))
				for i, c := range squares {
					labels[i] = c.Label()
				}
				d.out <- strings.Join(labels, ", ")

			case "quit", "exit", "q":
				return

			default:
				d.out <- fmt.Sprintf("unknown command %q", cmd)
			}

		case <-d.Closed():
			logw.Infof(ctx, "Driver closed")
			return
		}
	}
}

func countArg(args []string) int {
	if len(args) == 0 {
		return 1
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 1
	}
	return n
}

const horizontal = "  ---------------------------------------------------"

func (d *Driver) printBoard(ctx context.Context) {
	b := d.e.Board()
	rows := strings.Split(kfen.EncodeBoard(b), "/")

	d.out <- ""
	d.out <- horizontal
	for r, row := range rows {
		d.out <- fmt.Sprintf(" %2d | %v", r+1, row)
	}
	d.out <- horizontal

	st := d.e.Status(ctx)
	d.out <- fmt.Sprintf("turn %d: %v to move, %v phase", st.TurnNumber, st.CurrentPlayer, st.Phase)
	d.out <- fmt.Sprintf("position: %v", st.Position)
	d.out <- ""
}
