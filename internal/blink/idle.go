package blink

// Waiter parks the processor until something happens.
type Waiter interface {
	// Wait blocks until the next interrupt has been serviced.
	// It returns false only on hosts that need the loop to end.
	Wait() bool
}

// Idle is the terminal state after Init. It does no work of its own;
// everything observable happens in HandleCompareMatch.
func Idle(w Waiter) {
	for w.Wait() {
	}
}
