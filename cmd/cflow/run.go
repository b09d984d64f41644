package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cflow/internal/diag"
	"cflow/internal/ir"
	"cflow/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <file.cfir>",
	Short: "Lower a module and drive one function through the evaluator",
	Long: `Lower the module, then call the function named by --func. A generator is
stepped until it is exhausted: the first step starts it and each later step
sends the next --resume value (undefined once they run out).`,
	Args: cobra.ExactArgs(1),
	RunE: runExecution,
}

func init() {
	addLowerFlags(runCmd)
	runCmd.Flags().String("func", "", "function to run (required)")
	runCmd.Flags().StringArray("arg", nil, "call argument literal (repeatable)")
	runCmd.Flags().StringArray("resume", nil, "value sent to the next generator step (repeatable)")
	runCmd.Flags().Int("max-steps", 1000, "stop a generator after this many steps (0 = unbounded)")
	runCmd.Flags().Bool("vm-trace", false, "enable evaluator tracing")
	_ = runCmd.MarkFlagRequired("func")
}

func runExecution(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	name, err := flags.GetString("func")
	if err != nil {
		return err
	}
	argList, err := flags.GetStringArray("arg")
	if err != nil {
		return err
	}
	resumeList, err := flags.GetStringArray("resume")
	if err != nil {
		return err
	}
	maxSteps, err := flags.GetInt("max-steps")
	if err != nil {
		return err
	}
	vmTrace, err := flags.GetBool("vm-trace")
	if err != nil {
		return err
	}

	opts, err := lowerOptions(cmd)
	if err != nil {
		return err
	}
	res, err := lowerFile(cmd.Context(), cmd, args[0], opts, false)
	if res == nil {
		return err
	}
	f := res.Module.Func(name)
	if f == nil {
		if err != nil {
			return err
		}
		return fmt.Errorf("function %q not found in %s", name, args[0])
	}

	out := cmd.OutOrStdout()
	vopts := vm.Options{MaxDepth: opts.MaxDepth, Out: out}
	if vmTrace {
		vopts.Trace = vm.NewTracer(cmd.ErrOrStderr())
	}
	ev := vm.New(vopts)
	callArgs := parseValues(argList)

	if !f.Generator {
		v, err := ev.CallFunction(f, callArgs...)
		if err != nil {
			return runFailure(cmd, f, err)
		}
		fmt.Fprintf(out, "result: %s\n", v)
		return nil
	}

	step, ok := f.Body.(*ir.Lambda)
	if !ok {
		return fmt.Errorf("generator %q has no step function", name)
	}
	g, err := ev.StartGenerator(step, callArgs...)
	if err != nil {
		return runFailure(cmd, f, err)
	}
	resume := parseValues(resumeList)
	for i := 0; !g.Done(); i++ {
		if maxSteps > 0 && i >= maxSteps {
			fmt.Fprintf(out, "stopped after %d steps\n", maxSteps)
			break
		}
		v := vm.Undefined()
		if i > 0 && i-1 < len(resume) {
			v = resume[i-1]
		}
		s, err := g.Next(v)
		if err != nil {
			return runFailure(cmd, f, err)
		}
		fmt.Fprintf(out, "step %d: %s\n", i, s)
	}
	return nil
}

// runFailure reports an evaluation failure of f as a diagnostic.
func runFailure(cmd *cobra.Command, f *ir.Function, err error) error {
	var thrown *vm.Thrown
	if errors.As(err, &thrown) {
		sp := thrown.Span
		if sp.IsZero() {
			sp = f.Loc
		}
		return reportOne(cmd, diag.NewError(diag.RunUncaught, sp, err.Error()).InFunc(f.Name))
	}
	var vmErr *vm.VMError
	if errors.As(err, &vmErr) {
		sp := vmErr.Span
		if sp.IsZero() {
			sp = f.Loc
		}
		d := diag.NewError(diag.RunPanic, sp, vmErr.Error()).InFunc(f.Name)
		for _, fr := range vmErr.Backtrace {
			d = d.WithNote(fr.Span, "in "+fr.FuncName)
		}
		return reportOne(cmd, d)
	}
	return err
}
