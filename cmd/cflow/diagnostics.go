package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cflow/internal/diag"
	"cflow/internal/ir"
	"cflow/internal/irfile"
	"cflow/internal/source"
)

// errReported signals a failure whose diagnostics were already printed.
var errReported = errors.New("failed")

func maxDiagnostics(cmd *cobra.Command) int {
	n, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return 100
	}
	return n
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Sort()
	bag.Dedup()
	opts := diag.PrettyOpts{Color: !color.NoColor}
	if err := diag.PrettyBag(cmd.ErrOrStderr(), bag, opts); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to print diagnostics: %v\n", err)
	}
}

// reportOne prints a single diagnostic and returns errReported.
func reportOne(cmd *cobra.Command, d diag.Diagnostic) error {
	bag := diag.NewBag(1)
	bag.Add(d)
	printDiagnostics(cmd, bag)
	return errReported
}

// loadModule reads an IR container, reporting failures as diagnostics.
func loadModule(cmd *cobra.Command, path string) (*ir.Module, error) {
	m, err := irfile.ReadFile(path)
	if err != nil {
		code := diag.IODecodeError
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			code = diag.IOLoadFileError
		}
		return nil, reportOne(cmd, diag.NewError(code, source.Span{File: path}, err.Error()))
	}
	return m, nil
}
