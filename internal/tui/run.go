package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned by RunWithWork when the user quits the display
// before the work finishes. It wraps context.Canceled.
var ErrAborted = fmt.Errorf("aborted by user: %w", context.Canceled)

// RunWithWork creates a bubbletea program, launches workFn in a goroutine,
// and blocks until both the program and workFn have returned. The context
// handed to workFn is cancelled as soon as the program exits, so quitting
// the display stops the work. workFn receives a send callback that wraps
// tea.Program.Send with a small yield to give the renderer time to draw
// between updates.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, workFn func(ctx context.Context, send func(tea.Msg)), opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, opts...)...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)

		workFn(ctx, func(msg tea.Msg) {
			p.Send(msg)
			time.Sleep(5 * time.Millisecond)
		})

		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	cancel()
	<-done

	if m, ok := finalModel.(ProgressModel); ok {
		if m.Aborted() {
			return ErrAborted
		}
		if m.Err() != nil {
			return m.Err()
		}
	}
	switch {
	case errors.Is(err, tea.ErrProgramPanic):
		return err
	case errors.Is(err, tea.ErrInterrupted), errors.Is(err, tea.ErrProgramKilled):
		return ErrAborted
	}
	return err
}
