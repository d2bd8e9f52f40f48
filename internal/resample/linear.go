// Package resample converts a mono sample stream between sample rates
// using linear interpolation, sufficient for a model trained at a fixed
// rate.
package resample

// Linear resamples x (at sourceRate Hz) to targetRate Hz using linear
// interpolation. If sourceRate == targetRate, x is returned unmodified
// (the identity case callers should prefer to special-case to avoid a
// redundant copy, but Linear is still exact for it).
func Linear(x []float32, sourceRate, targetRate int) []float32 {
	if sourceRate == targetRate || len(x) == 0 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}

	n := len(x)
	newLen := roundRatio(n, sourceRate, targetRate)
	out := make([]float32, newLen)

	ratio := float64(sourceRate) / float64(targetRate)
	last := n - 1
	for i := 0; i < newLen; i++ {
		pos := float64(i) * ratio
		k := int(pos)
		if k >= last {
			out[i] = x[last]
			continue
		}
		f := pos - float64(k)
		out[i] = x[k] + float32(f)*(x[k+1]-x[k])
	}
	return out
}

// roundRatio computes round(n * targetRate / sourceRate) without float
// rounding surprises for large n.
func roundRatio(n, sourceRate, targetRate int) int {
	num := int64(n) * int64(targetRate)
	den := int64(sourceRate)
	q := num / den
	r := num % den
	if 2*r >= den {
		q++
	}
	if q < 0 {
		q = 0
	}
	return int(q)
}
