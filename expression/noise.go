package expression

import "math"

// BackgroundSD returns the sample standard deviation (N-1 denominator)
// over all finite entries of a scaled background table. The result is
// invariant to gene and window ordering. Fails with ErrInsufficientData
// when fewer than two finite values exist.
func BackgroundSD(scaled *Table) (float64, error) {
	n := 0
	sum := 0.0
	for _, row := range scaled.Values {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			n++
			sum += v
		}
	}
	if n < 2 {
		return 0, ErrInsufficientData
	}
	mean := sum / float64(n)

	ss := 0.0
	for _, row := range scaled.Values {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			d := v - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1)), nil
}
