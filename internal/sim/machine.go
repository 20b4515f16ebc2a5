package sim

import (
	"time"

	"github.com/sweeney/ctc-blinky/internal/hw"
)

// Edge is a change of the PORTB5 output level.
type Edge struct {
	Cycle   uint64
	Elapsed time.Duration // since reset
	Level   bool
}

// Machine is Timer1 plus the interrupt controller of one simulated part.
// Not safe for concurrent use; the firmware and the timer share one
// thread of execution, as on the real core.
type Machine struct {
	Bank *Bank
	Regs *hw.Registers
	IRQ  *Interrupts

	// ClockHz is the CPU clock feeding the prescaler.
	ClockHz uint32

	// AutoClearFlag clears OCF1A when the vector is taken, as the AVR
	// does. Turn it off to model parts that need software acknowledge.
	AutoClearFlag bool

	handlers map[hw.Vector]func()
	onPin    []func(Edge)

	cycle    uint64
	prescale uint64 // CPU cycles counted toward the next timer tick
	inISR    bool

	matches  uint64
	serviced uint64
	edges    uint64
	storms   uint64
}

// NewMachine returns a machine in its reset state.
func NewMachine(clockHz uint32) *Machine {
	b := NewBank()
	b.SetHook(hw.AddrTIFR1, WriteOneToClear)
	m := &Machine{
		Bank:          b,
		Regs:          hw.NewRegisters(b),
		IRQ:           NewInterrupts(b),
		ClockHz:       clockHz,
		AutoClearFlag: true,
		handlers:      make(map[hw.Vector]func()),
	}
	b.Observe(m.observe)
	return m
}

// Attach installs the handler for an interrupt vector.
func (m *Machine) Attach(v hw.Vector, handler func()) {
	m.handlers[v] = handler
}

// OnPinChange registers fn to receive every PORTB5 level change.
func (m *Machine) OnPinChange(fn func(Edge)) {
	m.onPin = append(m.onPin, fn)
}

// Cycle is the number of CPU cycles since reset.
func (m *Machine) Cycle() uint64 { return m.cycle }

// Elapsed is simulated time since reset.
func (m *Machine) Elapsed() time.Duration { return m.cyclesToDuration(m.cycle) }

// Matches counts compare-match A events raised by the timer.
func (m *Machine) Matches() uint64 { return m.matches }

// Serviced counts TIMER1_COMPA vectors taken.
func (m *Machine) Serviced() uint64 { return m.serviced }

// Storms counts dispatches that gave up on a flag the handler never
// cleared.
func (m *Machine) Storms() uint64 { return m.storms }

// Edges counts PORTB5 level changes.
func (m *Machine) Edges() uint64 { return m.edges }

// LED reports the PORTB5 output latch.
func (m *Machine) LED() bool {
	return m.Bank.Peek(hw.AddrPORTB)&(1<<hw.PORTB5) != 0
}

// SetPendingMatch raises OCF1A as if a match had happened, for
// reproducing stale flags left from before reset.
func (m *Machine) SetPendingMatch() {
	m.Bank.Poke(hw.AddrTIFR1, m.Bank.Peek(hw.AddrTIFR1)|1<<hw.OCF1A)
	m.dispatch()
}

func (m *Machine) cyclesToDuration(c uint64) time.Duration {
	if m.ClockHz == 0 {
		return 0
	}
	hz := uint64(m.ClockHz)
	secs := c / hz
	rem := c % hz
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/hz)
}

var prescalers = [8]uint64{0, 1, 8, 64, 256, 1024, 0, 0}

// Run advances the machine by cycles CPU cycles. The timer counts at
// ClockHz/prescaler while the clock select bits are non-zero.
func (m *Machine) Run(cycles uint64) {
	m.dispatch()

	start := m.cycle
	p := prescalers[m.Bank.Peek(hw.AddrTCCR1B)&hw.ClockSelectMask]
	if p == 0 || cycles == 0 {
		m.cycle = start + cycles
		return
	}

	carried := m.prescale
	total := carried + cycles
	ticks := total / p
	m.prescale = total % p

	var done uint64
	for done < ticks {
		tcnt := uint64(m.Bank.Peek16(hw.AddrTCNT1L))
		ocr := uint64(m.Bank.Peek16(hw.AddrOCR1AL))
		ctc := m.Bank.Peek(hw.AddrTCCR1B)&(1<<hw.WGM12) != 0

		// A match is the tick that leaves TCNT1 == OCR1A, so one period
		// is OCR1A+1 ticks.
		toOverflow := 0x10000 - tcnt
		toMatch := ocr - tcnt + 1
		if tcnt > ocr {
			toMatch = toOverflow + ocr + 1
		}
		d := toMatch
		if toOverflow < d {
			d = toOverflow
		}

		left := ticks - done
		if d > left {
			m.Bank.Poke16(hw.AddrTCNT1L, uint16(tcnt+left))
			break
		}
		done += d
		m.cycle = start + done*p - carried

		matched := d == toMatch
		next := (tcnt + d) & 0xFFFF
		if matched && ctc {
			next = 0
		}
		m.Bank.Poke16(hw.AddrTCNT1L, uint16(next))

		flags := m.Bank.Peek(hw.AddrTIFR1)
		if matched {
			flags |= 1 << hw.OCF1A
			m.matches++
		}
		if d == toOverflow {
			flags |= 1 << hw.TOV1
		}
		m.Bank.Poke(hw.AddrTIFR1, flags)

		m.dispatch()
	}
	m.cycle = start + cycles
}

// maxBackToBack bounds how often the vector is re-entered for a flag
// that the handler never acknowledges. Real hardware would spin forever.
const maxBackToBack = 8

// dispatch takes the compare-match vector while it is pending, unmasked
// and global interrupts are on. The handler runs with SREG.I clear and
// is never nested.
func (m *Machine) dispatch() {
	if m.inISR {
		return
	}
	for i := 0; i < maxBackToBack; i++ {
		if !m.take() {
			return
		}
	}
	if m.pending() {
		m.storms++
	}
}

func (m *Machine) pending() bool {
	b := m.Bank
	return b.Peek(hw.AddrSREG)&sregI != 0 &&
		b.Peek(hw.AddrTIMSK1)&(1<<hw.OCIE1A) != 0 &&
		b.Peek(hw.AddrTIFR1)&(1<<hw.OCF1A) != 0
}

func (m *Machine) take() bool {
	if !m.pending() {
		return false
	}
	handler := m.handlers[hw.VectorTimer1CompA]
	if handler == nil {
		return false
	}

	b := m.Bank
	m.inISR = true
	b.Poke(hw.AddrSREG, b.Peek(hw.AddrSREG)&^sregI)
	if m.AutoClearFlag {
		b.Poke(hw.AddrTIFR1, b.Peek(hw.AddrTIFR1)&^(1<<hw.OCF1A))
	}
	m.serviced++

	handler()

	b.Poke(hw.AddrSREG, b.Peek(hw.AddrSREG)|sregI) // reti
	m.inISR = false
	return true
}

func (m *Machine) observe(addr uint16, old, stored uint8) {
	if addr == hw.AddrPORTB && (old^stored)&(1<<hw.PORTB5) != 0 {
		m.edges++
		e := Edge{
			Cycle:   m.cycle,
			Elapsed: m.cyclesToDuration(m.cycle),
			Level:   stored&(1<<hw.PORTB5) != 0,
		}
		for _, fn := range m.onPin {
			fn(e)
		}
	}
	m.dispatch()
}
