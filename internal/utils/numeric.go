package utils

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of two vectors over their common
// prefix. A zero-norm pair yields 0 rather than NaN.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// MeanStdev returns the population mean and standard deviation. Empty input
// yields (0, 0).
func MeanStdev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var varSum float64
	for _, v := range values {
		d := v - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(values)))
}

// Percentile returns the q-th percentile (0..100) by rank on a sorted copy.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Floor(q / 100 * float64(len(sorted))))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// StandardizeColumns scales every column of a row-major matrix to zero mean
// and unit variance. Constant columns keep std 1 to avoid division by zero.
func StandardizeColumns(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	rows, cols := len(matrix), len(matrix[0])
	means := make([]float64, cols)
	stds := make([]float64, cols)
	for c := 0; c < cols; c++ {
		var sum float64
		for r := 0; r < rows; r++ {
			sum += matrix[r][c]
		}
		means[c] = sum / float64(rows)
		var varSum float64
		for r := 0; r < rows; r++ {
			d := matrix[r][c] - means[c]
			varSum += d * d
		}
		stds[c] = math.Sqrt(varSum / float64(rows))
		if stds[c] == 0 {
			stds[c] = 1
		}
	}
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		for c := 0; c < cols; c++ {
			row[c] = (matrix[r][c] - means[c]) / stds[c]
		}
		out[r] = row
	}
	return out
}

// PadRows zero-pads (or returns unchanged) a matrix to targetRows rows.
func PadRows(matrix [][]float64, targetRows, cols int) [][]float64 {
	if len(matrix) == targetRows {
		return matrix
	}
	if len(matrix) > 0 {
		cols = len(matrix[0])
	}
	out := make([][]float64, targetRows)
	for r := 0; r < targetRows; r++ {
		if r < len(matrix) {
			out[r] = matrix[r]
		} else {
			out[r] = make([]float64, cols)
		}
	}
	return out
}

// Flatten2D concatenates matrix rows into one vector.
func Flatten2D(matrix [][]float64) []float64 {
	var n int
	for _, row := range matrix {
		n += len(row)
	}
	out := make([]float64, 0, n)
	for _, row := range matrix {
		out = append(out, row...)
	}
	return out
}
