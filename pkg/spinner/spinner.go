// Package spinner draws a one-line terminal activity indicator.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the frame delay used by Start.
const DefaultInterval = 80 * time.Millisecond

var frames = []string{
	"⣀⣀ ", "⣄⣀ ", "⣤⣀ ", "⣦⣄ ", "⣶⣤ ", "⣿⣦ ", "⣿⣷ ", "⣿⣿ ",
	"⣿⣿ ", "⣷⣿ ", "⣦⣿ ", "⣤⣷ ", "⣄⣦ ", "⣀⣤ ", "⣀⣄ ", "⣀⣀ ",
}

// Spinner holds the spinner state
type Spinner struct {
	w     io.Writer
	label string
	index int
}

// New creates a spinner drawing to w, followed by label.
func New(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label}
}

// Update advances the spinner to the next frame and prints it.
func (s *Spinner) Update() {
	// Hide cursor
	fmt.Fprint(s.w, "\033[?25l")
	fmt.Fprintf(s.w, "\r%s%s", frames[s.index], s.label)

	s.index++
	if s.index >= len(frames) {
		s.index = 0
	}
}

// Cleanup clears the line and shows the cursor again.
func (s *Spinner) Cleanup() {
	fmt.Fprint(s.w, "\r\033[K")
	fmt.Fprint(s.w, "\033[?25h")
}

// Start animates s until the returned stop function is called or ctx ends.
// stop waits for the line to be cleared and is safe to call more than once.
func (s *Spinner) Start(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer s.Cleanup()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.Update()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Update()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// IsTerminal reports whether w is a character device, so escape sequences
// will not end up in a pipe or file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
