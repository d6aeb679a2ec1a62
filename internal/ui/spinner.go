package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner is a blocking terminal spinner for the phases before the meeting
// console takes over the screen (config, dial, join handshake).
type Spinner struct {
	message string
	frames  []string
	fps     time.Duration
	done    chan struct{}
	stopped bool
}

func newSpinner(message string, sp spinner.Spinner, fps time.Duration) *Spinner {
	return &Spinner{
		message: message,
		frames:  sp.Frames,
		fps:     fps,
		done:    make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	go func() {
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			default:
				frame := SpinnerStyle.Render(s.frames[i%len(s.frames)])
				fmt.Printf("\r%s %s", frame, s.message)
				time.Sleep(s.fps)
			}
		}
	}()
}

func (s *Spinner) Stop() {
	if !s.stopped {
		s.stopped = true
		close(s.done)
		fmt.Print("\r\033[K") // Clear the line
	}
}

// RunSpinner shows a dot spinner and returns its stop function.
func RunSpinner(message string) func() {
	sp := newSpinner(message, spinner.Dot, 80*time.Millisecond)
	sp.Start()
	return sp.Stop
}

// RunConnectionSpinner shows a globe spinner for network operations.
func RunConnectionSpinner(message string) func() {
	sp := newSpinner(message, spinner.Globe, 180*time.Millisecond)
	sp.Start()
	return sp.Stop
}
