//go:build avr

// Command blinky is the firmware: it toggles the Arduino Uno LED on PB5
// from the Timer1 compare-match interrupt and sleeps in between.
//
//	tinygo flash -target=arduino ./cmd/blinky
package main

import (
	"device/avr"
	"runtime/interrupt"

	"github.com/sweeney/ctc-blinky/internal/blink"
	"github.com/sweeney/ctc-blinky/internal/hw"
)

func main() {
	interrupt.New(avr.IRQ_TIMER1_COMPA, func(interrupt.Interrupt) {
		blink.HandleCompareMatch()
	})

	blink.Start(hw.MMIO(), hw.CPUInterrupts{}, blink.DefaultConfig())
	blink.Idle(hw.SleepWaiter{})
}
