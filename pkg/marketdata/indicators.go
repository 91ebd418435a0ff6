package marketdata

import (
	"fmt"
	"time"
)

// AveragePoint is one value of a moving-average series.
type AveragePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SMA computes the simple moving average of closing prices over window bars.
// The first point is emitted once window bars are available, so the result
// has len(points)-window+1 entries, or none when there are fewer bars.
func SMA(points []ChartPoint, window int) ([]AveragePoint, error) {
	if window <= 0 {
		return nil, fmt.Errorf("sma window must be positive, got %d", window)
	}
	result := []AveragePoint{}
	if len(points) < window {
		return result, nil
	}
	var sum float64
	for i, p := range points {
		sum += p.Close
		if i >= window {
			sum -= points[i-window].Close
		}
		if i >= window-1 {
			result = append(result, AveragePoint{
				Timestamp: p.Timestamp,
				Value:     round2(sum / float64(window)),
			})
		}
	}
	return result, nil
}
