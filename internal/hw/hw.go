// Package hw describes the ATmega328P registers used by the blink firmware.
// Every access goes through Register8, so the same firmware code can run
// against memory-mapped I/O on the target or a simulated bank on the host.
package hw

// Register8 is a single 8-bit I/O register.
// Each method is exactly one ordered, uncached access with side effects;
// callers must not assume a Get returns what the last Set wrote.
type Register8 interface {
	Get() uint8
	Set(value uint8)

	// SetBits, ClearBits and ToggleBits are read-modify-write.
	SetBits(mask uint8)
	ClearBits(mask uint8)
	ToggleBits(mask uint8)

	HasBits(mask uint8) bool
}

// Register16 is a 16-bit timer register split over two I/O addresses.
// Writes go high byte first and reads go low byte first, so that the
// AVR TEMP latch makes the 16-bit access atomic.
type Register16 struct {
	L Register8
	H Register8
}

// Set writes v as a single 16-bit access.
func (r Register16) Set(v uint16) {
	r.H.Set(uint8(v >> 8))
	r.L.Set(uint8(v))
}

// Get reads the register as a single 16-bit access.
func (r Register16) Get() uint16 {
	lo := r.L.Get()
	hi := r.H.Get()
	return uint16(hi)<<8 | uint16(lo)
}

// Timer1 is the 16-bit timer/counter 1 register block.
type Timer1 struct {
	TCCR1A Register8
	TCCR1B Register8
	TCNT1  Register16
	OCR1A  Register16
	TIMSK1 Register8
	TIFR1  Register8 // write-one-to-clear
}

// Port is a digital I/O port.
type Port struct {
	DDR  Register8
	PORT Register8
}

// Registers is the register file the firmware touches.
type Registers struct {
	Timer1 Timer1
	PortB  Port
	SREG   Register8
}

// Data-space addresses (ATmega328P).
const (
	AddrDDRB   = 0x24
	AddrPORTB  = 0x25
	AddrTIFR1  = 0x36
	AddrSREG   = 0x5F
	AddrTIMSK1 = 0x6F
	AddrTCCR1A = 0x80
	AddrTCCR1B = 0x81
	AddrTCNT1L = 0x84
	AddrTCNT1H = 0x85
	AddrOCR1AL = 0x88
	AddrOCR1AH = 0x89
)

// Bit positions.
const (
	CS10  = 0 // TCCR1B
	CS11  = 1
	CS12  = 2
	WGM12 = 3

	TOV1  = 0 // TIFR1
	OCF1A = 1

	OCIE1A = 1 // TIMSK1

	PORTB5 = 5 // PORTB, the on-board LED (Arduino pin 13)
	DDB5   = 5

	SREG_I = 7
)

// ClockSelectMask covers CS12:CS10 in TCCR1B.
const ClockSelectMask = 1<<CS12 | 1<<CS11 | 1<<CS10

// Names maps each known address to its datasheet name.
var Names = map[uint16]string{
	AddrDDRB:   "DDRB",
	AddrPORTB:  "PORTB",
	AddrTIFR1:  "TIFR1",
	AddrSREG:   "SREG",
	AddrTIMSK1: "TIMSK1",
	AddrTCCR1A: "TCCR1A",
	AddrTCCR1B: "TCCR1B",
	AddrTCNT1L: "TCNT1L",
	AddrTCNT1H: "TCNT1H",
	AddrOCR1AL: "OCR1AL",
	AddrOCR1AH: "OCR1AH",
}

// Bus resolves a data-space address to a register.
type Bus interface {
	Reg(addr uint16) Register8
}

// NewRegisters lays the register file out over a bus.
func NewRegisters(b Bus) *Registers {
	return &Registers{
		Timer1: Timer1{
			TCCR1A: b.Reg(AddrTCCR1A),
			TCCR1B: b.Reg(AddrTCCR1B),
			TCNT1:  Register16{L: b.Reg(AddrTCNT1L), H: b.Reg(AddrTCNT1H)},
			OCR1A:  Register16{L: b.Reg(AddrOCR1AL), H: b.Reg(AddrOCR1AH)},
			TIMSK1: b.Reg(AddrTIMSK1),
			TIFR1:  b.Reg(AddrTIFR1),
		},
		PortB: Port{
			DDR:  b.Reg(AddrDDRB),
			PORT: b.Reg(AddrPORTB),
		},
		SREG: b.Reg(AddrSREG),
	}
}
