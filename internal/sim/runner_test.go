package sim

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/sweeney/ctc-blinky/internal/hw"
)

func TestRunner_AdvancesWithClock(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	m.Attach(hw.VectorTimer1CompA, toggler(m))
	arm(m, 9, 1<<hw.CS10, true)

	mock := clock.NewMock()
	r := NewRunner(context.Background(), m, mock, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		mock.Add(10 * time.Millisecond)
		assert.True(r.Wait())
	}
	assert.Equal(uint64(30), m.Cycle())
	assert.Equal(uint64(3), m.Matches())
	assert.True(m.LED())
}

func TestRunner_FractionalCyclesAccumulate(t *testing.T) {
	m := NewMachine(3) // 3 Hz: one cycle every 333.3ms

	mock := clock.NewMock()
	r := NewRunner(context.Background(), m, mock, 100*time.Millisecond)

	for i := 0; i < 10; i++ {
		mock.Add(100 * time.Millisecond)
		r.Wait()
	}
	assert.Equal(t, uint64(3), m.Cycle())
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMachine(1000)
	r := NewRunner(ctx, m, clock.NewMock(), time.Second)

	cancel()
	assert.False(t, r.Wait())
	assert.Equal(t, uint64(0), m.Cycle())
}

func TestBudget_RunsInSlices(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	b := &Budget{M: m, Slice: 40, Cycles: 100}

	waits := 0
	for b.Wait() {
		waits++
	}
	assert.Equal(3, waits)
	assert.Equal(uint64(100), m.Cycle())
}
