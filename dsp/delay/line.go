// Package delay provides a power-of-two circular delay line.
package delay

import (
	"fmt"
	"math/bits"
)

// MaxSize bounds the capacity New will allocate.
const MaxSize = 1 << 24

// Line is a circular delay line whose capacity is a power of two, so the
// read and write positions wrap with a mask.
type Line struct {
	buf   []float64
	mask  int
	write int
	delay int
}

// New returns a delay line with room for at least minSize samples.
func New(minSize int) (*Line, error) {
	if minSize <= 0 || minSize > MaxSize {
		return nil, fmt.Errorf("delay: size must be in [1, %d]: %d", MaxSize, minSize)
	}

	size := nextPow2(minSize)

	return &Line{buf: make([]float64, size), mask: size - 1}, nil
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}

// Len returns the capacity.
func (d *Line) Len() int { return len(d.buf) }

// Delay returns the delay used by Pop.
func (d *Line) Delay() int { return d.delay }

// SetDelay sets the delay used by Pop, in [0, Len()-1].
func (d *Line) SetDelay(n int) error {
	if n < 0 || n >= len(d.buf) {
		return fmt.Errorf("delay: delay must be in [0, %d]: %d", len(d.buf)-1, n)
	}

	d.delay = n

	return nil
}

// Push writes one sample.
func (d *Line) Push(x float64) {
	d.buf[d.write] = x
	d.write = (d.write + 1) & d.mask
}

// Read returns the sample pushed k pushes before the most recent one; k=0
// is the newest sample. k is wrapped to the capacity.
func (d *Line) Read(k int) float64 {
	return d.buf[(d.write-1-k)&d.mask]
}

// Pop returns the sample Delay() pushes behind the newest.
func (d *Line) Pop() float64 {
	return d.Read(d.delay)
}

// Tick pushes x and returns Pop.
func (d *Line) Tick(x float64) float64 {
	d.Push(x)
	return d.Pop()
}

// Reset clears the contents. The delay is kept.
func (d *Line) Reset() {
	clear(d.buf)
	d.write = 0
}
