//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// RealWriter drives an actual GPIO line using the Linux GPIO character device.
type RealWriter struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealWriter requests line on chip as an output, initially low.
func NewRealWriter(chip string, line int) (*RealWriter, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	l, err := c.RequestLine(line, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request LED line %d: %w", line, err)
	}

	return &RealWriter{chip: c, line: l}, nil
}

// Set drives the line.
func (w *RealWriter) Set(level bool) error {
	v := 0
	if level {
		v = 1
	}
	if err := w.line.SetValue(v); err != nil {
		return fmt.Errorf("set LED line: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The line is put back to input with pull-down (Pi boot default) first so
// the LED does not stay lit after the bench exits.
func (w *RealWriter) Close() error {
	var err error
	if w.line != nil {
		if rerr := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("reconfigure LED line: %w", rerr))
		}
		if cerr := w.line.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close LED line: %w", cerr))
		}
	}
	if w.chip != nil {
		if cerr := w.chip.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", cerr))
		}
	}
	return err
}
