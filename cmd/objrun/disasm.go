package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <image>",
		Short: "Print a bytecode image's classes, methods, and instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := program.NewLoader().Load(args[0], nil)
			if err != nil {
				return err
			}
			for _, id := range prog.ClassIDs() {
				cls, _ := prog.GetClass(id)
				fmt.Printf("class %s (id=%d, parent=%d)\n", cls.Name, cls.ID, cls.ParentID)
				for _, mid := range sortedMethodIDs(cls) {
					m := cls.Methods[mid]
					fmt.Printf("  method %s (id=%d, params=%d, locals=%d)\n", m.Name, m.ID, m.NumParams, m.LocalWords)
					for i, instr := range m.Instructions {
						fmt.Printf("    %4d  %s\n", i, instr.String())
					}
				}
			}
			return nil
		},
	}
	return cmd
}

// sortedMethodIDs orders a class's methods for deterministic disassembly
// output; program.Class.Methods is a map and carries no ordering of its
// own.
func sortedMethodIDs(cls *program.Class) []program.MethodID {
	ids := make([]program.MethodID, 0, len(cls.Methods))
	for id := range cls.Methods {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
