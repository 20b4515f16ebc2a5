// Package gpio mirrors the simulated LED onto a physical output line.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives a single GPIO output.
type Writer interface {
	// Set drives the line high (true) or low (false).
	Set(level bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO chip the bench line lives on.
const DefaultChip = "gpiochip0"

// DefaultLine is the BCM line of the bench LED. A negative line disables
// the mirror.
const DefaultLine = -1
