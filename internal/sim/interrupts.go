package sim

import "github.com/sweeney/ctc-blinky/internal/hw"

const sregI = 1 << hw.SREG_I

// Interrupts drives SREG.I through the bank so that cli/sei show up in
// the trace next to the register writes they guard.
type Interrupts struct {
	sreg hw.Register8
}

// NewInterrupts returns the global interrupt control for a bank.
func NewInterrupts(b *Bank) *Interrupts {
	return &Interrupts{sreg: b.Reg(hw.AddrSREG)}
}

func (i *Interrupts) Disable() hw.State {
	s := i.sreg.Get()
	i.sreg.Set(s &^ sregI)
	return hw.State(s)
}

func (i *Interrupts) Restore(s hw.State) {
	i.sreg.Set(uint8(s))
}

func (i *Interrupts) Enable() {
	i.sreg.SetBits(sregI)
}
