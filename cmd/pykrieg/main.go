// Package main runs the pykrieg engine as a line-oriented process: a
// terminal reads a protocol name from its first input line and picks the
// matching driver for the rest of the session.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/seekerror/logw"
	"github.com/spf13/cobra"

	"github.com/ssjmarx/pykrieg-go/pkg/engine"
	"github.com/ssjmarx/pykrieg-go/pkg/engine/console"
	"github.com/ssjmarx/pykrieg-go/pkg/engine/protocol"
)

var (
	undoLimit int
	author    = "pykrieg"
)

var cmdRoot = &cobra.Command{
	Use:   "pykrieg",
	Short: "pykrieg is a two-player turn-based wargame rules engine",
	Long: `pykrieg reads a line-oriented command vocabulary from stdin and writes
responses to stdout. The first line selects the driver:

  pykrieg       (this program's command vocabulary, see pkg/engine/protocol)
  console       (interactive play with board rendering, see pkg/engine/console)
`,
	RunE: runEngine,
}

func init() {
	cmdRoot.PersistentFlags().IntVar(&undoLimit, "undo-limit", 0, "cap the action log's history length (0 = unlimited)")

	cmdRoot.AddCommand(cmdVersion)
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "print the engine version and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(engine.Version)
		return nil
	},
}

func runEngine(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var opts []engine.Option
	if undoLimit > 0 {
		opts = append(opts, engine.WithUndoLimit(undoLimit))
	}
	e := engine.New(ctx, "pykrieg", author, opts...)

	in := engine.ReadStdinLines(ctx)
	switch <-in {
	case protocol.ProtocolName:
		driver, out := protocol.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()
		os.Exit(driver.ExitCode())

	case console.ProtocolName:
		driver, out := console.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	default:
		return fmt.Errorf("unsupported protocol, expected %q or %q", protocol.ProtocolName, console.ProtocolName)
	}
	return nil
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		ctx := context.Background()
		logw.Exitf(ctx, "%v", err)
	}
}
