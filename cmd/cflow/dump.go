package main

import (
	"github.com/spf13/cobra"

	"cflow/internal/ir"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <file.cfir>",
	Short: "Print the IR of a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	addLowerFlags(dumpCmd)
	dumpCmd.Flags().Bool("lower", false, "lower the module before printing")
	dumpCmd.Flags().String("func", "", "print only this function")
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]
	doLower, err := cmd.Flags().GetBool("lower")
	if err != nil {
		return err
	}
	only, err := cmd.Flags().GetString("func")
	if err != nil {
		return err
	}

	var m *ir.Module
	var failed error
	if doLower {
		opts, err := lowerOptions(cmd)
		if err != nil {
			return err
		}
		res, err := lowerFile(cmd.Context(), cmd, path, opts, false)
		if res == nil {
			return err
		}
		m, failed = res.Module, err
	} else if m, err = loadModule(cmd, path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range m.Funcs {
		if only != "" && f.Name != only {
			continue
		}
		if err := ir.FprintFunction(out, f); err != nil {
			return err
		}
	}
	return failed
}
