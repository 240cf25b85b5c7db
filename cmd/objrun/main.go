// Command objrun loads and drives images against the bytecode runtime:
// run executes a program, disasm prints its instruction stream, and
// verify round-trips an image through the writer to check the codec.
// A small set of scriptable subcommands replaces an interactive
// debugger loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "objrun",
		Short: "Run, disassemble, and verify bytecode images",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newVerifyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
