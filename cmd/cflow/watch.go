package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"cflow/internal/irfile"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file.cfir>",
	Short: "Re-lower a module whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	addLowerFlags(watchCmd)
	watchCmd.Flags().StringP("output", "o", "", "write the lowered module to this file after each run")
	watchCmd.Flags().Duration("debounce", 100*time.Millisecond, "quiet period before re-lowering")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	opts, err := lowerOptions(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	relower := func() {
		res, err := lowerFile(ctx, cmd, path, opts, false)
		if res == nil {
			if err != nil && !errors.Is(err, errReported) {
				fmt.Fprintf(cmd.ErrOrStderr(), "lower: %v\n", err)
			}
			return
		}
		if output != "" && err == nil {
			if werr := irfile.WriteFile(output, res.Module); werr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "write %s: %v\n", output, werr)
				return
			}
		}
		fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), summaryLine(res))
	}

	relower()
	return watchLoop(ctx, w, path, debounce, relower)
}

// watchLoop calls fire once per burst of changes to path.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, debounce time.Duration, fire func()) error {
	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			fire()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}
