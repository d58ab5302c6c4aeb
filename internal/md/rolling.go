package md

import (
	"errors"
	"math"
)

// RingBuffer keeps the last size values and their running sum.
type RingBuffer struct {
	values []float64
	size   int
	index  int
	count  int
	sum    float64
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		values: make([]float64, size),
		size:   size,
	}
}

func (r *RingBuffer) Add(value float64) {
	if r.count == r.size {
		r.sum -= r.values[r.index]
	} else {
		r.count++
	}
	r.values[r.index] = value
	r.sum += value
	r.index = (r.index + 1) % r.size
}

func (r *RingBuffer) Len() int {
	return r.count
}

func (r *RingBuffer) Full() bool {
	return r.count == r.size
}

// Mean is the average of the buffered values once the buffer is full.
func (r *RingBuffer) Mean() (float64, bool) {
	if !r.Full() {
		return 0, false
	}
	return r.sum / float64(r.size), true
}

// RollingAverage is the simple moving average of values over n samples.
// Positions without n samples of history hold NaN.
func RollingAverage(values []float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.New("rolling window must be positive")
	}
	out := make([]float64, len(values))
	buffer := NewRingBuffer(n)
	for i, v := range values {
		buffer.Add(v)
		mean, ok := buffer.Mean()
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean
	}
	return out, nil
}
