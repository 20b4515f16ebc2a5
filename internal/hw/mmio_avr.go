//go:build avr

package hw

import (
	"device/avr"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// mmio is a memory-mapped register at a fixed data-space address.
type mmio struct {
	r *volatile.Register8
}

func (m mmio) Get() uint8              { return m.r.Get() }
func (m mmio) Set(v uint8)             { m.r.Set(v) }
func (m mmio) SetBits(mask uint8)      { m.r.SetBits(mask) }
func (m mmio) ClearBits(mask uint8)    { m.r.ClearBits(mask) }
func (m mmio) ToggleBits(mask uint8)   { m.r.Set(m.r.Get() ^ mask) }
func (m mmio) HasBits(mask uint8) bool { return m.r.HasBits(mask) }

type mmioBus struct{}

func (mmioBus) Reg(addr uint16) Register8 {
	return mmio{r: (*volatile.Register8)(unsafe.Pointer(uintptr(addr)))}
}

// MMIO returns the register file mapped onto the real peripherals.
func MMIO() *Registers {
	return NewRegisters(mmioBus{})
}

// CPUInterrupts drives SREG.I with cli/sei.
type CPUInterrupts struct{}

func (CPUInterrupts) Disable() State {
	return State(interrupt.Disable())
}

func (CPUInterrupts) Restore(s State) {
	interrupt.Restore(interrupt.State(s))
}

func (CPUInterrupts) Enable() {
	avr.Asm("sei")
}

// SleepWaiter parks the core in idle sleep until the next interrupt.
// Idle mode keeps the timer clock running.
type SleepWaiter struct{}

// Wait never reports that the loop should stop.
func (SleepWaiter) Wait() bool {
	avr.SMCR.Set(avr.SMCR_SE)
	avr.Asm("sleep")
	avr.SMCR.Set(0)
	return true
}
