package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/interp"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

func newRunCmd() *cobra.Command {
	var libPath string
	var gcThreshold int64

	cmd := &cobra.Command{
		Use:   "run <image> [args...]",
		Short: "Load and execute a bytecode image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := program.NewLoader()
			if libPath != "" {
				loader.LibPath = strings.Split(libPath, string(os.PathListSeparator))
			}

			prog, err := loader.Load(args[0], args[1:])
			if err != nil {
				return err
			}

			hp := heap.New(gcThreshold)
			traps := trap.NewTable()

			if fatal := interp.Run(prog, hp, traps, os.Stdout, os.Stderr, os.Stdin); fatal != nil {
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true
				os.Stderr.WriteString(fatal.Error() + "\n")
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&libPath, "lib-path", "", "colon/semicolon-separated library search path")
	cmd.Flags().Int64Var(&gcThreshold, "gc-threshold", 0, "live-word budget before an allocation triggers a collection (0 disables)")
	return cmd
}
