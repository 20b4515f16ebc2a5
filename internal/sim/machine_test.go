package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/ctc-blinky/internal/hw"
)

// arm sets up Timer1 by hand: CTC when ctc is set, the given clock
// select bits, OCR1A and an unmasked compare-match interrupt.
func arm(m *Machine, ocr uint16, cs uint8, ctc bool) {
	t := m.Regs.Timer1
	t.OCR1A.Set(ocr)
	ctrl := cs
	if ctc {
		ctrl |= 1 << hw.WGM12
	}
	t.TCCR1B.Set(ctrl)
	t.TIMSK1.Set(1 << hw.OCIE1A)
	m.IRQ.Enable()
}

func toggler(m *Machine) func() {
	return func() { m.Regs.PortB.PORT.ToggleBits(1 << hw.PORTB5) }
}

func TestMachine_CTCPeriod(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	m.Attach(hw.VectorTimer1CompA, toggler(m))
	arm(m, 9, 1<<hw.CS10, true)

	m.Run(100)
	assert.Equal(uint64(10), m.Matches())
	assert.Equal(uint64(10), m.Serviced())
	assert.Equal(uint64(10), m.Edges())
	assert.Equal(uint16(0), m.Regs.Timer1.TCNT1.Get())

	m.Run(5)
	assert.Equal(uint64(10), m.Matches())
	assert.Equal(uint16(5), m.Bank.Peek16(hw.AddrTCNT1L))
	assert.Equal(uint64(105), m.Cycle())
	assert.Equal(105*time.Millisecond, m.Elapsed())
}

func TestMachine_PrescalerCarriesAcrossRuns(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(16_000_000)
	arm(m, 100, 1<<hw.CS11, true) // clk/8

	m.Run(7)
	assert.Equal(uint16(0), m.Bank.Peek16(hw.AddrTCNT1L))
	m.Run(1)
	assert.Equal(uint16(1), m.Bank.Peek16(hw.AddrTCNT1L))
	m.Run(15)
	assert.Equal(uint16(2), m.Bank.Peek16(hw.AddrTCNT1L))
}

func TestMachine_StoppedTimerDoesNotCount(t *testing.T) {
	m := NewMachine(1000)
	arm(m, 9, 0, true)

	m.Run(1_000_000)
	assert.Equal(t, uint64(0), m.Matches())
	assert.Equal(t, uint64(1_000_000), m.Cycle())
}

func TestMachine_NormalModeWraps(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	m.Attach(hw.VectorTimer1CompA, func() {})
	arm(m, 9, 1<<hw.CS10, false)

	m.Run(10)
	assert.Equal(uint64(1), m.Matches())
	assert.Equal(uint16(10), m.Bank.Peek16(hw.AddrTCNT1L), "no clear on match outside CTC")

	m.Run(0x10000 - 10)
	assert.Equal(uint64(1), m.Matches())
	assert.NotZero(m.Bank.Peek(hw.AddrTIFR1) & (1 << hw.TOV1))

	m.Run(10)
	assert.Equal(uint64(2), m.Matches(), "next match one full wrap later")
}

func TestMachine_MaskedMatchesCollapse(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	m.Attach(hw.VectorTimer1CompA, toggler(m))
	arm(m, 9, 1<<hw.CS10, true)
	m.IRQ.Disable()

	m.Run(50)
	assert.Equal(uint64(5), m.Matches())
	assert.Equal(uint64(0), m.Serviced())
	assert.NotZero(m.Bank.Peek(hw.AddrTIFR1) & (1 << hw.OCF1A))

	// One pending flag, one vector.
	m.IRQ.Enable()
	assert.Equal(uint64(1), m.Serviced())
	assert.Zero(m.Bank.Peek(hw.AddrTIFR1) & (1 << hw.OCF1A))
}

func TestMachine_HandlerRunsMaskedAndUnnested(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	depth := 0
	maxDepth := 0
	m.Attach(hw.VectorTimer1CompA, func() {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		assert.Zero(m.Bank.Peek(hw.AddrSREG)&sregI, "SREG.I must be clear inside the handler")

		// A second match pending while the handler runs waits for reti.
		m.SetPendingMatch()
		m.Regs.PortB.PORT.ToggleBits(1 << hw.PORTB5)
		depth--
	})
	arm(m, 9, 1<<hw.CS10, true)

	m.Run(10)
	assert.Equal(1, maxDepth)
	assert.NotZero(m.Bank.Peek(hw.AddrSREG)&sregI, "reti sets SREG.I")
	assert.Equal(uint64(maxBackToBack), m.Serviced())
}

func TestMachine_UnacknowledgedFlagStorms(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	m.AutoClearFlag = false
	m.Attach(hw.VectorTimer1CompA, toggler(m))
	arm(m, 9, 1<<hw.CS10, true)

	m.Run(10)
	assert.Equal(uint64(1), m.Matches())
	assert.Greater(m.Serviced(), m.Matches())
	assert.NotZero(m.Storms())
}

func TestMachine_ExplicitAcknowledgeWithoutAutoClear(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(1000)
	m.AutoClearFlag = false
	m.Attach(hw.VectorTimer1CompA, func() {
		m.Regs.PortB.PORT.ToggleBits(1 << hw.PORTB5)
		m.Regs.Timer1.TIFR1.Set(1 << hw.OCF1A)
	})
	arm(m, 9, 1<<hw.CS10, true)

	m.Run(1000)
	assert.Equal(uint64(100), m.Matches())
	assert.Equal(uint64(100), m.Serviced())
	assert.Equal(uint64(100), m.Edges())
	assert.Zero(m.Storms())
}

func TestMachine_PinEdges(t *testing.T) {
	m := NewMachine(1000)
	m.Attach(hw.VectorTimer1CompA, toggler(m))

	var edges []Edge
	m.OnPinChange(func(e Edge) { edges = append(edges, e) })
	arm(m, 9, 1<<hw.CS10, true)

	m.Run(30)

	want := []Edge{
		{Cycle: 10, Elapsed: 10 * time.Millisecond, Level: true},
		{Cycle: 20, Elapsed: 20 * time.Millisecond, Level: false},
		{Cycle: 30, Elapsed: 30 * time.Millisecond, Level: true},
	}
	assert.Equal(t, want, edges)
}

func TestMachine_EnablingWithStaleFlagFiresImmediately(t *testing.T) {
	// Unmasking the source while SREG.I is set and a flag is pending runs
	// the handler right away, before any later setup step.
	m := NewMachine(1000)
	m.Attach(hw.VectorTimer1CompA, toggler(m))
	m.IRQ.Enable()
	m.SetPendingMatch()

	m.Regs.Timer1.TIMSK1.Set(1 << hw.OCIE1A)

	assert.Equal(t, uint64(1), m.Serviced())
	assert.Equal(t, uint64(0), m.Matches())
}
