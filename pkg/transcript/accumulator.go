package transcript

import "strings"

// Accumulator builds the streamed message text from token events. Its
// current length is the authoritative offset used to place tool calls
// that arrive without a server-supplied insert position. Length is
// monotonic within one stream session; Reset starts the next session.
type Accumulator struct {
	buf strings.Builder
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds token text and returns the new length
func (a *Accumulator) Append(text string) int {
	a.buf.WriteString(text)
	return a.buf.Len()
}

// Len returns the current accumulated length
func (a *Accumulator) Len() int {
	return a.buf.Len()
}

// String returns the accumulated content
func (a *Accumulator) String() string {
	return a.buf.String()
}

// Reset clears the accumulator for a new stream session
func (a *Accumulator) Reset() {
	a.buf.Reset()
}
