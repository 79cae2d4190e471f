package md

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotEnoughData = errors.New("not enough data")

// RingBuffer keeps the most recent size prices, evicting the oldest on overflow.
// A zero-sized buffer retains nothing.
type RingBuffer struct {
	values []decimal.Decimal
	size   int
	index  int
	filled bool
}

func NewRingBuffer(size int) *RingBuffer {
	if size < 0 {
		size = 0
	}
	return &RingBuffer{
		values: make([]decimal.Decimal, size),
		size:   size,
	}
}

func (r *RingBuffer) Add(value decimal.Decimal) {
	if r.size == 0 {
		return
	}
	r.values[r.index] = value
	r.index = (r.index + 1) % r.size
	if r.index == 0 {
		r.filled = true
	}
}

func (r *RingBuffer) Len() int {
	if r.filled {
		return r.size
	}
	return r.index
}

// Values returns the retained prices oldest first.
func (r *RingBuffer) Values() []decimal.Decimal {
	length := r.Len()
	result := make([]decimal.Decimal, 0, length)
	if length == 0 {
		return result
	}
	if r.filled {
		result = append(result, r.values[r.index:]...)
	}
	result = append(result, r.values[:r.index]...)
	return result
}

func (r *RingBuffer) Last() (decimal.Decimal, bool) {
	if r.Len() == 0 {
		return decimal.Zero, false
	}
	idx := (r.index - 1 + r.size) % r.size
	return r.values[idx], true
}

func (r *RingBuffer) Reset() {
	for i := range r.values {
		r.values[i] = decimal.Zero
	}
	r.index = 0
	r.filled = false
}

// Mean is the arithmetic mean of the newest window prices.
func (r *RingBuffer) Mean(window int) (decimal.Decimal, error) {
	if window <= 0 {
		return decimal.Zero, errors.New("window must be positive")
	}
	values := r.Values()
	if len(values) < window {
		return decimal.Zero, ErrNotEnoughData
	}
	sum := decimal.Zero
	for _, v := range values[len(values)-window:] {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(window))), nil
}

// Range reports min, max and mean of everything retained. All zero when empty.
func (r *RingBuffer) Range() (lo, hi, avg decimal.Decimal) {
	values := r.Values()
	if len(values) == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	lo, hi = values[0], values[0]
	sum := decimal.Zero
	for _, v := range values {
		if v.LessThan(lo) {
			lo = v
		}
		if v.GreaterThan(hi) {
			hi = v
		}
		sum = sum.Add(v)
	}
	return lo, hi, sum.Div(decimal.NewFromInt(int64(len(values))))
}
