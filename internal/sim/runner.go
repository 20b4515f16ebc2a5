package sim

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Runner advances a machine in step with a wall clock. It is the host
// stand-in for the idle loop: each Wait sleeps one step and then runs
// the cycles the part would have executed in that time.
type Runner struct {
	ctx    context.Context
	m      *Machine
	ticker *clock.Ticker
	last   time.Time
	rem    uint64 // sub-cycle remainder, in ns*Hz
}

// NewRunner starts a ticker on clk that fires every step.
func NewRunner(ctx context.Context, m *Machine, clk clock.Clock, step time.Duration) *Runner {
	return &Runner{
		ctx:    ctx,
		m:      m,
		ticker: clk.Ticker(step),
		last:   clk.Now(),
	}
}

// Wait blocks for the next tick and runs the elapsed cycles. It returns
// false once ctx is done.
func (r *Runner) Wait() bool {
	select {
	case <-r.ctx.Done():
		r.ticker.Stop()
		return false
	case now := <-r.ticker.C:
		elapsed := now.Sub(r.last)
		r.last = now
		if elapsed > 0 {
			r.m.Run(r.cycles(elapsed))
		}
		return true
	}
}

func (r *Runner) cycles(d time.Duration) uint64 {
	hz := uint64(r.m.ClockHz)
	ns := uint64(d)
	secs := ns / uint64(time.Second)
	frac := ns%uint64(time.Second)*hz + r.rem
	r.rem = frac % uint64(time.Second)
	return secs*hz + frac/uint64(time.Second)
}

// Budget is a Waiter that runs a fixed number of CPU cycles in slices
// and then stops the idle loop.
type Budget struct {
	M      *Machine
	Slice  uint64
	Cycles uint64
	spent  uint64
}

// Wait runs the next slice. It returns false when the budget is spent.
func (b *Budget) Wait() bool {
	if b.spent >= b.Cycles {
		return false
	}
	n := b.Slice
	if n == 0 || n > b.Cycles-b.spent {
		n = b.Cycles - b.spent
	}
	b.M.Run(n)
	b.spent += n
	return true
}
