package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cflow/internal/diag"
	"cflow/internal/driver"
	"cflow/internal/ir"
	"cflow/internal/irfile"
	"cflow/internal/observ"
	"cflow/internal/source"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <file.cfir>",
	Short: "Lower generators and switches of an IR module",
	Args:  cobra.ExactArgs(1),
	RunE:  runLower,
}

func init() {
	addLowerFlags(lowerCmd)
	lowerCmd.Flags().StringP("output", "o", "", "write the lowered module to this file")
	lowerCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	lowerCmd.Flags().Bool("stats", false, "print per-function statistics")
}

// addLowerFlags registers the flags shared by every command that lowers.
func addLowerFlags(cmd *cobra.Command) {
	cmd.Flags().Int("jobs", 0, "functions lowered in parallel (0 = GOMAXPROCS)")
	cmd.Flags().Int("max-depth", 0, "IR nesting limit (0 = default)")
	cmd.Flags().String("equals", "", "host equality method of generic switches")
	cmd.Flags().Bool("fail-fast", false, "abort on the first rejected function")
	cmd.Flags().Bool("no-cache", false, "disable the lowering cache")
}

// lowerOptions merges the loaded configuration with the command's flags.
// Flags set on the command line win.
func lowerOptions(cmd *cobra.Command) (driver.Options, error) {
	cfg := loadedConfig
	flags := cmd.Flags()
	opts := driver.Options{
		Jobs:           cfg.Lower.Jobs,
		MaxDepth:       cfg.Lower.MaxDepth,
		EqualsMethod:   cfg.Lower.EqualsMethod,
		FailFast:       cfg.Lower.FailFast,
		MaxDiagnostics: maxDiagnostics(cmd),
	}
	var err error
	if flags.Changed("jobs") {
		if opts.Jobs, err = flags.GetInt("jobs"); err != nil {
			return opts, err
		}
	}
	if flags.Changed("max-depth") {
		if opts.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return opts, err
		}
	}
	if flags.Changed("equals") {
		if opts.EqualsMethod, err = flags.GetString("equals"); err != nil {
			return opts, err
		}
	}
	if flags.Changed("fail-fast") {
		if opts.FailFast, err = flags.GetBool("fail-fast"); err != nil {
			return opts, err
		}
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return opts, err
	}
	if cfg.Cache.Enabled && !noCache {
		cache, err := driver.OpenDiskCache(cfg.Cache.Dir)
		if err != nil {
			// A broken cache directory only costs speed.
			fmt.Fprintf(cmd.ErrOrStderr(), "cache disabled: %v\n", err)
		} else {
			opts.Cache = cache
		}
	}
	if timings, _ := cmd.Root().PersistentFlags().GetBool("timings"); timings {
		opts.Timer = observ.NewTimer()
	}
	return opts, nil
}

// lowerFile reads and lowers path. Diagnostics are printed; the returned
// error is errReported when any function was rejected.
func lowerFile(ctx context.Context, cmd *cobra.Command, path string, opts driver.Options, withUI bool) (*driver.Result, error) {
	m, err := loadModule(cmd, path)
	if err != nil {
		return nil, err
	}
	var res *driver.Result
	if withUI {
		res, err = runLowerWithUI(ctx, "lower "+path, m, opts)
	} else {
		res, err = driver.LowerModule(ctx, m, opts)
	}
	if res != nil {
		printDiagnostics(cmd, res.Bag)
	}
	if err != nil {
		dumpRing(cmd)
		if res == nil || !res.Bag.HasErrors() {
			return res, err
		}
		return res, errReported
	}
	if res.Bag.HasErrors() {
		return res, errReported
	}
	return res, nil
}

func runLower(cmd *cobra.Command, args []string) error {
	path := args[0]
	opts, err := lowerOptions(cmd)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := parseSwitchMode("ui", uiValue)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	res, lowerErr := lowerFile(cmd.Context(), cmd, path, opts, !quiet && mode.enabledFor(os.Stdout))
	if res == nil {
		return lowerErr
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" && lowerErr == nil {
		if err := irfile.WriteFile(output, res.Module); err != nil {
			return reportOne(cmd, diag.NewError(diag.IOWriteError, source.Span{File: output}, err.Error()))
		}
	}

	out := cmd.OutOrStdout()
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		printStats(out, res)
	}
	if !quiet {
		fmt.Fprintln(out, summaryLine(res))
	}
	if opts.Timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), opts.Timer.Summary())
	}
	return lowerErr
}

func summaryLine(res *driver.Result) string {
	cached := 0
	for _, fr := range res.Funcs {
		if fr.Cached {
			cached++
		}
	}
	return fmt.Sprintf("lowered %d of %d functions (%d cached, %d rejected)",
		len(res.Module.Funcs), len(res.Funcs), cached, res.Rejected())
}

func printStats(w io.Writer, res *driver.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNC\tKIND\tSWITCHES\tGENERIC\tYIELDS\tRESUME IDS\tCELLS\tFRAMES\tCACHED")
	for _, fr := range res.Funcs {
		kind := "rejected"
		if fr.Func != nil {
			kind = funcKind(fr.Func)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%v\n", fr.Name, kind,
			fr.Switch.Switches, fr.Switch.Generic,
			fr.Generator.Yields, fr.Generator.ResumeIDs, fr.Generator.Cells, fr.Generator.Frames,
			fr.Cached)
	}
	_ = tw.Flush()
}

func funcKind(f *ir.Function) string {
	if f.Generator {
		return "generator"
	}
	return "func"
}
