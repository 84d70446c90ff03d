package detect

import "math"

// Smoother is a fixed-size FIFO moving average over recent driving
// acceleration values.
type Smoother struct {
	size int
	buf  []float64
}

// NewSmoother creates a smoother with the given window size (minimum 1).
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{size: size, buf: make([]float64, 0, size)}
}

// Push appends a value and returns the mean of the current window.
func (s *Smoother) Push(v float64) float64 {
	if len(s.buf) == s.size {
		s.buf = append(s.buf[:0], s.buf[1:]...)
	}
	s.buf = append(s.buf, v)

	var sum float64
	for _, x := range s.buf {
		sum += x
	}
	return sum / float64(len(s.buf))
}

// Reset clears the window.
func (s *Smoother) Reset() {
	s.buf = s.buf[:0]
}

// JerkTracker computes the rate of change between consecutive smoothed
// driving-acceleration values. Jerk is undefined on a session's first sample.
type JerkTracker struct {
	prev    float64
	hasPrev bool
}

// Update records v and returns the jerk against the previous value.
// The boolean is false on the first sample after Reset.
func (j *JerkTracker) Update(v float64) (float64, bool) {
	if !j.hasPrev {
		j.prev = v
		j.hasPrev = true
		return 0, false
	}
	jerk := math.Abs(v - j.prev)
	j.prev = v
	return jerk, true
}

// Reset clears the previous value.
func (j *JerkTracker) Reset() {
	j.prev = 0
	j.hasPrev = false
}
