package fixtures

import (
	"context"
	"time"

	"github.com/tilinna/clock"
)

// NewMockClock returns a virtual clock parked at a fixed epoch. Tests hand
// it to the component under test and advance it explicitly, so timers fire
// deterministically instead of at wall speed.
func NewMockClock() *clock.Mock {
	return clock.NewMock(time.Unix(1, 0))
}

// NextStep will advance the supplied clock.Mock until it moves, or the context.Context is canceled (which typically
// means it timed out in wall-time).  This is useful when testing things that exist inside goroutines, when it's not
// possible to tell when the goroutine is ready to consume mock time.
func NextStep(ctx context.Context, clck *clock.Mock) {
	for _, d := clck.AddNext(); d == 0 && ctx.Err() == nil; _, d = clck.AddNext() {
		time.Sleep(1) // Allows the system to actually idle, runtime.Gosched() does not.
	}
}
