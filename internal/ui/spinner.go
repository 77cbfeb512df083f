package ui

import (
	"fmt"
	"sync"
	"time"
)

var (
	spinnerMu   sync.Mutex
	spinnerChan chan bool
)

func StartSpinner(msg string) {
	StartSpinnerWithColor(msg, Colors.Normal)
}

func StartSpinnerWithColor(msg string, c ColorFn) {
	if c == nil {
		c = Colors.Normal
	}

	frames := []rune(`⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏`)
	length := len(frames)

	done := make(chan bool)

	spinnerMu.Lock()
	spinnerChan = done
	spinnerMu.Unlock()

	ticker := time.NewTicker(100 * time.Millisecond)
	go func() {
		pos := 0

		for {
			select {
			case <-done:
				ticker.Stop()
				return
			case <-ticker.C:
				fmt.Printf("\r%s ... %s", c(msg), string(frames[pos%length]))
				pos += 1
			}
		}
	}()
}

// StopSpinner is safe to call when no spinner runs.
func StopSpinner() {
	spinnerMu.Lock()
	done := spinnerChan
	spinnerChan = nil
	spinnerMu.Unlock()

	if done == nil {
		return
	}

	close(done)

	fmt.Printf("\r")
	fmt.Println()
}
