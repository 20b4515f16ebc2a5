package gpio

// FakeWriter is a test double that records driven levels.
type FakeWriter struct {
	// Levels contains every level passed to Set, in order.
	Levels []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeWriter creates a FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Set records the level.
func (f *FakeWriter) Set(level bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, level)
	return nil
}

// Level returns the last driven level, false if none.
func (f *FakeWriter) Level() bool {
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded levels.
func (f *FakeWriter) Reset() {
	f.Levels = nil
	f.Closed = false
	f.SetError = nil
}
