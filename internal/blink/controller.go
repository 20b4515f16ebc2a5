package blink

import "github.com/sweeney/ctc-blinky/internal/hw"

// AckPolicy says who clears the OCF1A pending flag.
type AckPolicy uint8

const (
	// AckHardware leaves OCF1A alone in the handler; the AVR clears it
	// when the vector is taken. Clearing it again could drop a match
	// that lands while the handler runs.
	AckHardware AckPolicy = iota

	// AckExplicit writes 1 to OCF1A at the end of the handler, for
	// parts that do not clear the flag on vector entry.
	AckExplicit
)

func (p AckPolicy) String() string {
	switch p {
	case AckHardware:
		return "hardware"
	case AckExplicit:
		return "explicit"
	}
	return "unknown"
}

// ParseAckPolicy parses the String form of an AckPolicy.
func ParseAckPolicy(s string) (AckPolicy, bool) {
	switch s {
	case "hardware":
		return AckHardware, true
	case "explicit":
		return AckExplicit, true
	}
	return 0, false
}

// Config is the register-level timer setup.
type Config struct {
	Threshold   uint16 // OCR1A
	ClockSelect uint8  // CS12:CS10
	Ack         AckPolicy
}

// DefaultConfig is the compile-time configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:   Threshold,
		ClockSelect: 1 << hw.CS12, // Prescaler = 256
		Ack:         AckHardware,
	}
}

const (
	ledMask  = 1 << hw.PORTB5
	flagMask = 1 << hw.OCF1A
)

// Controller owns Timer1, the LED pin and the compare-match handler.
type Controller struct {
	regs *hw.Registers
	irq  hw.Interrupts
	cfg  Config
}

// NewController binds a controller to a register file. Nothing is
// written until Init.
func NewController(regs *hw.Registers, irq hw.Interrupts, cfg Config) *Controller {
	return &Controller{regs: regs, irq: irq, cfg: cfg}
}

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Init brings Timer1 and PORTB5 into a known state and arms the
// compare-match interrupt. All configuration happens with interrupts
// masked; the source is unmasked last so a stale match cannot reach the
// handler before the pin is an output.
func (c *Controller) Init() {
	t := &c.regs.Timer1
	port := &c.regs.PortB

	hw.CriticalSection(c.irq, func() {
		t.TCNT1.Set(0)
		t.TCCR1A.Set(0)
		t.TCCR1B.Set(0)

		t.OCR1A.Set(c.cfg.Threshold)
		t.TCCR1B.SetBits(1<<hw.WGM12 | c.cfg.ClockSelect&hw.ClockSelectMask)

		// Write-one-to-clear: a plain store, never read-modify-write.
		t.TIFR1.Set(flagMask)

		port.DDR.SetBits(1 << hw.DDB5)

		t.TIMSK1.Set(1 << hw.OCIE1A)
	})
	c.irq.Enable()

	port.PORT.SetBits(ledMask)
}

// HandleCompareMatch is the TIMER1_COMPA handler. It flips the LED and,
// under AckExplicit, acknowledges the match. It must stay short and
// must not block.
func (c *Controller) HandleCompareMatch() {
	c.regs.PortB.PORT.ToggleBits(ledMask)
	if c.cfg.Ack == AckExplicit {
		c.regs.Timer1.TIFR1.Set(flagMask)
	}
}

// LED reports the current output level.
func (c *Controller) LED() bool {
	return c.regs.PortB.PORT.HasBits(ledMask)
}

// device is the process-wide controller. It is set once by Start and
// lives until power is removed; there is no teardown on this part.
var device *Controller

// Start initializes the device controller. Calling it twice panics.
func Start(regs *hw.Registers, irq hw.Interrupts, cfg Config) *Controller {
	if device != nil {
		panic("blink: already started")
	}
	device = NewController(regs, irq, cfg)
	device.Init()
	return device
}

// HandleCompareMatch runs the device handler. It is what the interrupt
// vector calls.
func HandleCompareMatch() {
	device.HandleCompareMatch()
}
