// Package blink is the Timer1 compare-match LED blinker.
//
// Timer1 runs in CTC mode, so the counter restarts by itself on every
// match and no software re-arming exists. The compare-match A interrupt
// toggles PORTB5. This package has no I/O beyond hw registers and no
// dependencies beyond errors and time, so it builds for the target as is.
package blink

import (
	"errors"
	"time"

	"github.com/sweeney/ctc-blinky/internal/hw"
)

// Compile-time timer configuration. The blink rate is not adjustable at
// run time.
const (
	ClockHz      = 16_000_000
	Prescaler    = 256
	BlinkMilliHz = 500 // one full on/off cycle every 2 s

	// Threshold is OCR1A: round(ClockHz/Prescaler/(2*f)) - 1.
	Threshold = 62_499
)

// Conversions of out-of-range constants do not compile, which keeps
// Threshold within [1, 65535].
const (
	_ = uint16(Threshold)
	_ = uint16(Threshold - 1)
)

var (
	ErrThresholdRange = errors.New("blink: compare threshold outside [1, 65535]")
	ErrPrescaler      = errors.New("blink: prescaler must be 1, 8, 64, 256 or 1024")
	ErrZeroFrequency  = errors.New("blink: blink frequency must be non-zero")
	ErrZeroClock      = errors.New("blink: clock rate must be non-zero")
)

// ClockSelect returns the TCCR1B CS12:CS10 bits for a prescaler.
func ClockSelect(prescaler uint16) (uint8, error) {
	switch prescaler {
	case 1:
		return 1 << hw.CS10, nil
	case 8:
		return 1 << hw.CS11, nil
	case 64:
		return 1<<hw.CS11 | 1<<hw.CS10, nil
	case 256:
		return 1 << hw.CS12, nil
	case 1024:
		return 1<<hw.CS12 | 1<<hw.CS10, nil
	}
	return 0, ErrPrescaler
}

// PrescalerOf is the inverse of ClockSelect. It returns 0 when the timer
// is stopped or clocked externally.
func PrescalerOf(cs uint8) uint16 {
	switch cs & hw.ClockSelectMask {
	case 1 << hw.CS10:
		return 1
	case 1 << hw.CS11:
		return 8
	case 1<<hw.CS11 | 1<<hw.CS10:
		return 64
	case 1 << hw.CS12:
		return 256
	case 1<<hw.CS12 | 1<<hw.CS10:
		return 1024
	}
	return 0
}

// ComputeThreshold returns the OCR1A value that gives a full blink cycle
// of blinkMilliHz/1000 Hz. Each match is half a cycle.
func ComputeThreshold(clockHz uint32, prescaler uint16, blinkMilliHz uint32) (uint16, error) {
	if clockHz == 0 {
		return 0, ErrZeroClock
	}
	if blinkMilliHz == 0 {
		return 0, ErrZeroFrequency
	}
	if _, err := ClockSelect(prescaler); err != nil {
		return 0, err
	}

	num := uint64(clockHz) * 1000
	den := uint64(prescaler) * 2 * uint64(blinkMilliHz)
	ticks := (num + den/2) / den
	if ticks < 2 || ticks > 1<<16 {
		return 0, ErrThresholdRange
	}
	return uint16(ticks - 1), nil
}

// Period is the full blink period: 2 * (threshold+1) * prescaler / clock.
func Period(clockHz uint32, prescaler, threshold uint16) time.Duration {
	if clockHz == 0 {
		return 0
	}
	ns := 2 * (uint64(threshold) + 1) * uint64(prescaler) * uint64(time.Second)
	return time.Duration((ns + uint64(clockHz)/2) / uint64(clockHz))
}

// HalfPeriod is the time between two toggles.
func HalfPeriod(clockHz uint32, prescaler, threshold uint16) time.Duration {
	return Period(clockHz, prescaler, threshold) / 2
}

// TickDuration is one timer count.
func TickDuration(clockHz uint32, prescaler uint16) time.Duration {
	if clockHz == 0 {
		return 0
	}
	return time.Duration(uint64(prescaler) * uint64(time.Second) / uint64(clockHz))
}
