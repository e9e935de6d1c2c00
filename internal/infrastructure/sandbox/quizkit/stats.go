package quizkit

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Empty inputs return 0 throughout so answers stay JSON-encodable; gonum
// itself panics or yields NaN on them.

func Sum(xs []float64) float64 {
	return floats.Sum(xs)
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Median averages the two middle values of an even-length input.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := sortedCopy(xs)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func Min(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Min(xs)
}

func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Max(xs)
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(xs, nil)
	return std
}

// Quantile returns the smallest value with at least fraction p of the
// samples at or below it.
func Quantile(p float64, xs []float64) (float64, error) {
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("quantile %v outside [0, 1]", p)
	}
	if len(xs) == 0 {
		return 0, nil
	}
	return stat.Quantile(p, stat.Empirical, sortedCopy(xs), nil), nil
}

// Correlation is the Pearson correlation of two equal-length series.
func Correlation(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, fmt.Errorf("correlation needs equal lengths, got %d and %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return 0, nil
	}
	return stat.Correlation(xs, ys, nil), nil
}

func sortedCopy(xs []float64) []float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return sorted
}
