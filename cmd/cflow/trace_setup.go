package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cflow/internal/trace"
)

// stringSetting returns the flag value when it was set on the command line,
// else the configured value when there is one, else the flag default.
func stringSetting(cmd *cobra.Command, flag, configured string) (string, error) {
	flags := cmd.Flags()
	if flags.Lookup(flag) == nil {
		flags = cmd.Root().PersistentFlags()
	}
	v, err := flags.GetString(flag)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	if !flags.Changed(flag) && configured != "" {
		return configured, nil
	}
	return v, nil
}

// setupTracing initializes the tracer from flags and the [trace] config
// section and attaches it to the command context. It returns a cleanup
// function.
func setupTracing(cmd *cobra.Command, tc traceConfig) (func(), error) {
	root := cmd.Root()

	traceOutput, err := stringSetting(cmd, "trace", tc.Output)
	if err != nil {
		return nil, err
	}
	levelStr, err := stringSetting(cmd, "trace-level", tc.Level)
	if err != nil {
		return nil, err
	}
	modeStr, err := stringSetting(cmd, "trace-mode", tc.Mode)
	if err != nil {
		return nil, err
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}

	// An output without a level traces phases.
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	return func() {
		heartbeat.Stop()
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpRing writes the ring buffer of tracer, if it keeps one, after a
// failed run.
func dumpRing(cmd *cobra.Command) {
	var rings []*trace.RingTracer
	switch t := trace.FromContext(cmd.Context()).(type) {
	case *trace.RingTracer:
		rings = append(rings, t)
	case *trace.MultiTracer:
		rings = t.Rings()
	}
	for _, r := range rings {
		fmt.Fprintln(cmd.ErrOrStderr(), "trace: last events")
		if err := r.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
		}
	}
}
