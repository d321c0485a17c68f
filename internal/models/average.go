package models

import (
	"math"

	"go.uber.org/zap"
)

// Averager is anything that can report its own average. A NaN average passes no
// threshold, so such an item lands in the failed group while staying out of the mean.
type Averager interface {
	Average() float64
}

// MeanOfAverages reduces individual averages into a single figure. Each item weighs the
// same regardless of how many grades produced its average. Nil items and NaN averages are
// skipped; infinities are kept. The result is 0 when nothing usable remains.
func MeanOfAverages(items []Averager) float64 {
	var (
		sum   float64
		count int
	)
	for i, item := range items {
		if isNilAverager(item) {
			zap.L().Warn("skipping entry without an average", zap.Int("index", i))
			continue
		}
		avg := item.Average()
		if math.IsNaN(avg) {
			zap.L().Warn("skipping non-numeric average", zap.Int("index", i), zap.Float64("average", avg))
			continue
		}
		sum += avg
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func isNilAverager(item Averager) bool {
	if item == nil {
		return true
	}
	if s, ok := item.(*Student); ok && s == nil {
		return true
	}
	return false
}
