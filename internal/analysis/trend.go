package analysis

import "math"

const trendWindows = 5

// amplitudeTrend splits the lateral trace into windows, takes each window's
// peak |y|, and fits a line through the peaks. A positive slope means the
// oscillation envelope is growing.
func amplitudeTrend(ys []float64) float64 {
	if len(ys) < trendWindows {
		return 0
	}
	size := len(ys) / trendWindows
	amps := make([]float64, trendWindows)
	for i := 0; i < trendWindows; i++ {
		start := i * size
		end := start + size
		if i == trendWindows-1 {
			end = len(ys)
		}
		amps[i] = maxAbs(ys[start:end])
	}
	return slope(amps)
}

// slope is the least-squares slope of vs against its indices.
func slope(vs []float64) float64 {
	n := float64(len(vs))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range vs {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func maxAbs(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func stddev(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range vs {
		mean += v
	}
	mean /= float64(len(vs))

	sum := 0.0
	for _, v := range vs {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)))
}
