package hw

// State is the global interrupt enable state saved by Disable.
type State uint8

// Interrupts controls the global interrupt enable flag (SREG.I).
type Interrupts interface {
	// Disable masks all interrupts (cli) and returns the previous state.
	Disable() State

	// Restore puts back a state returned by Disable.
	Restore(State)

	// Enable unmasks all interrupts (sei).
	Enable()
}

// CriticalSection runs fn with global interrupts masked and restores the
// prior state afterwards, also when fn panics.
func CriticalSection(irq Interrupts, fn func()) {
	state := irq.Disable()
	defer irq.Restore(state)
	fn()
}

// Vector identifies an interrupt source by its vector table slot.
type Vector uint8

// VectorTimer1CompA is TIMER1_COMPA, __vector_11 on the ATmega328P.
const VectorTimer1CompA Vector = 11
