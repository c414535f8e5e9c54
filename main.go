// x64em is the command-line interface to a 64-bit paged-memory CPU emulator.
package main

import (
	"context"
	"os"

	"github.com/cdaltas/x64em/internal/cli"
	"github.com/cdaltas/x64em/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Run(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
