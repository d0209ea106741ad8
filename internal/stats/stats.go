// Package stats holds the small descriptive statistics used by the outlier
// validator and the analysis helpers.
package stats

import "math"

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(n)
}

// SampleStd computes the sample (n-1) standard deviation. It returns 0 for
// fewer than two values.
func SampleStd(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	m := Mean(x)
	ss := 0.0
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	min, max := x[0], x[0]
	for _, v := range x[1:] {
		if v < min {
			min = v
		} else if v > max {
			max = v
		}
	}
	return min, max
}

// LeaveOneOutZ returns, for every x[i], its z-score against the mean and
// sample standard deviation of the other values. ok[i] is false when that
// score is undefined: fewer than two other values, or the others are
// constant.
//
// Sums are taken over values shifted by the overall mean so that removing one
// element does not cancel catastrophically on large magnitudes.
func LeaveOneOutZ(x []float64) (z []float64, ok []bool) {
	n := len(x)
	z = make([]float64, n)
	ok = make([]bool, n)
	if n < 3 {
		return z, ok
	}
	shift := Mean(x)
	var s, q float64
	for _, v := range x {
		d := v - shift
		s += d
		q += d * d
	}
	scale := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	floor := 1e-12 * scale
	floor *= floor
	m := float64(n - 1)
	for i, v := range x {
		d := v - shift
		rs, rq := s-d, q-d*d
		mean := rs / m
		variance := (rq - m*mean*mean) / (m - 1)
		// Variance below rounding noise of the data's magnitude means the
		// remaining values are constant.
		if variance <= floor || variance <= 0 {
			continue
		}
		z[i] = math.Abs(d-mean) / math.Sqrt(variance)
		ok[i] = true
	}
	return z, ok
}
