// Package signal defines the fixed-length sample buffer exchanged between
// nodes for one processing block.
package signal

// Buffer holds one block of mono samples.
type Buffer []float32

// New allocates a zeroed buffer of n samples.
func New(n int) Buffer {
	return make(Buffer, n)
}

// Copy copies min(len(dst), len(src)) samples from src into dst and returns
// the number copied. It never allocates or resizes dst.
func Copy(dst, src Buffer) int {
	return copy(dst, src)
}

// Fill sets every sample of b to v.
func Fill(b Buffer, v float32) {
	for i := range b {
		b[i] = v
	}
}

// Zero clears b.
func Zero(b Buffer) {
	clear(b)
}

// Peak returns the largest absolute sample value in b.
func Peak(b Buffer) float32 {
	var peak float32
	for _, s := range b {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
