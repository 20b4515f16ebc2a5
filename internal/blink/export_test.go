package blink

// ResetDevice forgets the started controller so each test can Start anew.
func ResetDevice() {
	device = nil
}
