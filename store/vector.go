package store

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Dot returns the dot product of two vectors. For unit vectors this equals
// their cosine similarity.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}

	return float32(sum)
}

// Normalize scales v to unit length. Zero vectors are returned unchanged.
// Partitions normalize at ingestion so TopK can stay a plain dot product.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}

	return out
}

// Rank scores every chunk against the query vector and returns the k best in
// descending score order. Ties keep the original chunk order.
func Rank(chunks []Chunk, vector []float32, k int) []Result {
	if k < 1 {
		return nil
	}

	results := make([]Result, 0, len(chunks))
	for _, ch := range chunks {
		results = append(results, Result{
			Chunk: ch,
			Score: Dot(vector, ch.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}

// ParseVector decodes the textual embedding column, a bracketed
// comma-separated float list, into 32-bit floats.
func ParseVector(s string) ([]float32, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")

	if len(strings.TrimSpace(trimmed)) == 0 {
		return nil, errors.New("empty embedding field")
	}

	fields := strings.Split(trimmed, ",")
	vec := make([]float32, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, err
		}
		vec = append(vec, float32(v))
	}

	return vec, nil
}

// FormatVector is the inverse of ParseVector. Values round-trip exactly at
// 32-bit precision.
func FormatVector(v []float32) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, x := range v {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	sb.WriteString("]")
	return sb.String()
}

// ValidateId rejects partition identifiers that could escape the assigned
// namespace on path-backed providers.
func ValidateId(id string) error {
	if len(strings.TrimSpace(id)) == 0 {
		return ErrInvalidId
	}

	if id == "." || id == ".." || strings.Contains(id, "..") {
		return ErrInvalidId
	}

	if strings.ContainsAny(id, `/\`) {
		return ErrInvalidId
	}

	return nil
}
