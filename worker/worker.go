package worker

import (
	"runtime"

	"github.com/getsentry/sentry-go"
)

var queue = make(chan func(), runtime.NumCPU())

func init() {
	for i := 0; i < runtime.NumCPU(); i++ {
		go run()
	}
}

func run() {
	defer sentry.Recover()

	for {
		f, ok := <-queue
		if !ok {
			return
		}

		f()
	}
}

// Submit hands f to the shared worker pool. Used for work that must not stall
// the simulation tick, such as encoding and sending outbound messages.
func Submit(f func()) {
	queue <- f
}
