package frame

// FakeSource is a test double that returns scripted intensity values.
type FakeSource struct {
	// Values contains scripted intensity samples to return.
	// Each call to Read() consumes the next value.
	Values []float64

	// index tracks current position in Values
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSource creates a FakeSource with the given values.
func NewFakeSource(values []float64) *FakeSource {
	return &FakeSource{Values: values}
}

// Read returns the next scripted value.
// If values are exhausted, returns the last value repeatedly.
func (f *FakeSource) Read() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Values) == 0 {
		return 0, ErrNoSample
	}

	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}

	return v, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the source to the beginning of the script.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Closed = false
}
