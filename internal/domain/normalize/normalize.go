// Package normalize standardizes feature columns to zero mean and unit variance.
package normalize

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/custseg/internal/domain/model"
)

// relativeEpsilon bounds how small a standard deviation may be, relative to the column
// magnitude, before the column is treated as constant.
const relativeEpsilon = 1e-12

// ColumnStats holds the batch statistics used to scale one column.
type ColumnStats struct {
	Mean     float64
	StdDev   float64 // population standard deviation
	Scale    float64 // divisor applied before the moments: the largest magnitude, at least 1
	Constant bool
}

// Matrix converts feature vectors to a row-major matrix in model.Columns order.
func Matrix(vectors []model.FeatureVector) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = v.Values()
	}
	return out
}

// Columns computes per-column statistics of a row-major matrix.
// Values are divided by the column's largest magnitude first, so amounts near
// math.MaxFloat64 keep finite statistics.
func Columns(rows [][]float64) []ColumnStats {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	stats := make([]ColumnStats, width)
	col := make([]float64, len(rows))

	for c := 0; c < width; c++ {
		constant := true
		for i, r := range rows {
			col[i] = r[c]
			if r[c] != rows[0][c] {
				constant = false
			}
		}

		scale := math.Max(1, floats.Norm(col, math.Inf(1)))
		floats.Scale(1/scale, col)
		mean, std := stat.PopMeanStdDev(col, nil)
		mean *= scale
		std *= scale

		if std <= relativeEpsilon*math.Max(1, math.Abs(mean)) {
			constant = true
		}
		stats[c] = ColumnStats{Mean: mean, StdDev: std, Scale: scale, Constant: constant}
	}
	return stats
}

// Standardize returns a new matrix where every column has zero mean and unit variance.
// A constant column becomes all zeros. The input is not modified.
func Standardize(vectors []model.FeatureVector) [][]float64 {
	rows := Matrix(vectors)
	stats := Columns(rows)
	for _, r := range rows {
		for c, s := range stats {
			if s.Constant {
				r[c] = 0
				continue
			}
			r[c] = (r[c]/s.Scale - s.Mean/s.Scale) / (s.StdDev / s.Scale)
		}
	}
	return rows
}
