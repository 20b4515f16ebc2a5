// Package sim is a host-side model of the ATmega328P pieces the blink
// firmware uses: the I/O data space, Timer1, SREG and the interrupt
// controller. Firmware code runs against it unchanged through hw.Registers.
package sim

import (
	"fmt"

	"github.com/sweeney/ctc-blinky/internal/hw"
)

// Op is the kind of a register access.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "W"
	}
	return "R"
}

// Access is one CPU-side register access.
type Access struct {
	Op    Op
	Addr  uint16
	Name  string
	Value uint8 // value read, or value the CPU wrote (before any hook)

	// IntsOn is SREG.I at the moment of the access.
	IntsOn bool
}

func (a Access) String() string {
	return fmt.Sprintf("%s %s=%#02x", a.Op, a.Name, a.Value)
}

// WriteHook turns a CPU write into the value the register stores.
type WriteHook func(old, written uint8) uint8

// WriteOneToClear is the hook for interrupt flag registers.
func WriteOneToClear(old, written uint8) uint8 {
	return old &^ written
}

// Bank is a 256-byte I/O data space with an access trace.
// Not safe for concurrent use.
type Bank struct {
	mem       [256]uint8
	trace     []Access
	hooks     map[uint16]WriteHook
	observers []func(addr uint16, old, stored uint8)
}

// NewBank returns a zeroed bank, as after reset.
func NewBank() *Bank {
	return &Bank{hooks: make(map[uint16]WriteHook)}
}

// Reg returns the register at addr. Bank implements hw.Bus.
func (b *Bank) Reg(addr uint16) hw.Register8 {
	return reg{b: b, addr: addr}
}

// SetHook installs a write hook for addr.
func (b *Bank) SetHook(addr uint16, hook WriteHook) {
	b.hooks[addr] = hook
}

// Observe registers fn to run after every CPU write.
func (b *Bank) Observe(fn func(addr uint16, old, stored uint8)) {
	b.observers = append(b.observers, fn)
}

// Peek reads without tracing, as the peripheral side would.
func (b *Bank) Peek(addr uint16) uint8 {
	return b.mem[addr&0xFF]
}

// Poke writes without tracing, hooks or observers.
func (b *Bank) Poke(addr uint16, v uint8) {
	b.mem[addr&0xFF] = v
}

// Peek16 reads a little-endian register pair.
func (b *Bank) Peek16(lo uint16) uint16 {
	return uint16(b.Peek(lo+1))<<8 | uint16(b.Peek(lo))
}

// Poke16 writes a little-endian register pair.
func (b *Bank) Poke16(lo uint16, v uint16) {
	b.Poke(lo, uint8(v))
	b.Poke(lo+1, uint8(v>>8))
}

// Trace returns a copy of all recorded accesses.
func (b *Bank) Trace() []Access {
	out := make([]Access, len(b.trace))
	copy(out, b.trace)
	return out
}

// Writes returns the recorded writes only.
func (b *Bank) Writes() []Access {
	var out []Access
	for _, a := range b.trace {
		if a.Op == OpWrite {
			out = append(out, a)
		}
	}
	return out
}

// ResetTrace drops the recorded accesses.
func (b *Bank) ResetTrace() {
	b.trace = nil
}

func (b *Bank) intsOn() bool {
	return b.Peek(hw.AddrSREG)&(1<<hw.SREG_I) != 0
}

func (b *Bank) record(op Op, addr uint16, v uint8) {
	name, ok := hw.Names[addr]
	if !ok {
		name = fmt.Sprintf("%#02x", addr)
	}
	b.trace = append(b.trace, Access{Op: op, Addr: addr, Name: name, Value: v, IntsOn: b.intsOn()})
}

func (b *Bank) read(addr uint16) uint8 {
	v := b.Peek(addr)
	b.record(OpRead, addr, v)
	return v
}

func (b *Bank) write(addr uint16, v uint8) {
	b.record(OpWrite, addr, v)
	old := b.Peek(addr)
	stored := v
	if hook := b.hooks[addr]; hook != nil {
		stored = hook(old, v)
	}
	b.Poke(addr, stored)
	for _, fn := range b.observers {
		fn(addr, old, stored)
	}
}

type reg struct {
	b    *Bank
	addr uint16
}

func (r reg) Get() uint8              { return r.b.read(r.addr) }
func (r reg) Set(v uint8)             { r.b.write(r.addr, v) }
func (r reg) SetBits(mask uint8)      { r.b.write(r.addr, r.b.read(r.addr)|mask) }
func (r reg) ClearBits(mask uint8)    { r.b.write(r.addr, r.b.read(r.addr)&^mask) }
func (r reg) ToggleBits(mask uint8)   { r.b.write(r.addr, r.b.read(r.addr)^mask) }
func (r reg) HasBits(mask uint8) bool { return r.b.read(r.addr)&mask != 0 }
