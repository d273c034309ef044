package etl

import "math"

// Interpolate fills NaN gaps in a chronologically ordered series by linear
// interpolation between the nearest known neighbours. Gaps at the ends,
// which have only one neighbour, are forward-filled then back-filled. The
// slice is modified in place; a series with no known value is left as is.
func Interpolate(vals []float64) {
	n := len(vals)
	i := 0
	for i < n {
		if !math.IsNaN(vals[i]) {
			i++
			continue
		}
		// Gap [i, j).
		j := i
		for j < n && math.IsNaN(vals[j]) {
			j++
		}
		switch {
		case i > 0 && j < n:
			lo, hi := vals[i-1], vals[j]
			span := float64(j - (i - 1))
			for k := i; k < j; k++ {
				vals[k] = lo + (hi-lo)*float64(k-(i-1))/span
			}
		case i > 0: // trailing gap: forward fill
			for k := i; k < j; k++ {
				vals[k] = vals[i-1]
			}
		case j < n: // leading gap: back fill
			for k := i; k < j; k++ {
				vals[k] = vals[j]
			}
		}
		i = j
	}
}
