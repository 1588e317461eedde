package filter

import "math"

// NormalizeVector scales a vector to unit length. A zero vector normalizes
// to a zero vector of the same dimension.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	// Calculate magnitude
	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	if magnitude == 0 {
		result := make([]float32, len(v))
		return result
	}

	// Normalize
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// DotProduct computes the dot product of two vectors. Mismatched lengths
// are handled by truncating to the shorter vector.
func DotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity computes the cosine similarity of two unit vectors and
// clips the result to [0, 1]. For unit vectors cosine similarity reduces to
// the dot product; floating point noise and opposed vectors are clipped
// rather than surfaced as out-of-range scores.
func CosineSimilarity(a, b []float32) float32 {
	score := DotProduct(a, b)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
