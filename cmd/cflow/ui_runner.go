package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"cflow/internal/driver"
	"cflow/internal/ir"
	"cflow/internal/ui"
)

type lowerOutcome struct {
	result *driver.Result
	err    error
}

func runLowerWithUI(ctx context.Context, title string, m *ir.Module, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan lowerOutcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.LowerModule(ctx, m, o)
		outcomeCh <- lowerOutcome{result: res, err: err}
		close(events)
	}()

	names := make([]string, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			names = append(names, f.Name)
		}
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
