package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 120 * time.Millisecond

// spinner animates an indeterminate progress line on terminals. On other
// writers it prints the description once.
type spinner struct {
	bar      *progressbar.ProgressBar
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startSpinner(w io.Writer, description string) *spinner {
	s := &spinner{stop: make(chan struct{}), done: make(chan struct{})}
	if !shouldColorize(w) {
		_, _ = io.WriteString(w, description+"\n")
		close(s.done)
		return s
	}
	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(spinnerInterval),
		progressbar.OptionClearOnFinish(),
	)
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
	return s
}

// Describe replaces the spinner label. It is a no-op off-terminal.
func (s *spinner) Describe(description string) {
	if s.bar != nil {
		s.bar.Describe(description)
	}
}

func (s *spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
		if s.bar != nil {
			_ = s.bar.Finish()
		}
	})
}
