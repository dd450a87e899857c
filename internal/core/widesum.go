package core

import (
	"math"
	"math/bits"
)

// wideSum is a signed 128-bit accumulator. Summing int64 incomes into it
// cannot overflow for any realistic record count.
type wideSum struct {
	hi, lo uint64
}

func (s *wideSum) add(v int64) {
	var carry uint64
	s.lo, carry = bits.Add64(s.lo, uint64(v), 0)
	var ext uint64
	if v < 0 {
		ext = math.MaxUint64
	}
	s.hi, _ = bits.Add64(s.hi, ext, carry)
}

// divide returns |sum| / n as quotient and remainder plus the sign of sum.
// The quotient fits in 64 bits because every term fits in int64.
func (s wideSum) divide(n int) (q, r uint64, neg bool) {
	hi, lo := s.hi, s.lo
	if int64(hi) < 0 {
		neg = true
		var borrow uint64
		lo, borrow = bits.Sub64(0, lo, 0)
		hi, _ = bits.Sub64(0, hi, borrow)
	}
	q, r = bits.Div64(hi, lo, uint64(n))
	return q, r, neg
}

// roundedMean is sum/n rounded half away from zero.
func (s wideSum) roundedMean(n int) int64 {
	q, r, neg := s.divide(n)
	if 2*r >= uint64(n) {
		q++
	}
	if neg {
		return -int64(q)
	}
	return int64(q)
}

// mean is sum/n as a float.
func (s wideSum) mean(n int) float64 {
	q, r, neg := s.divide(n)
	m := float64(q) + float64(r)/float64(n)
	if neg {
		return -m
	}
	return m
}
