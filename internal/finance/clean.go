package finance

import (
	"math"
	"time"
)

// filterPositive removes points where the close is missing (Yahoo nulls decode
// to zero), negative, or not finite, keeping dates and values aligned.
func filterPositive(dates []time.Time, cl []float64) ([]time.Time, []float64) {
	if len(dates) != len(cl) {
		n := len(dates)
		if len(cl) < n {
			n = len(cl)
		}
		dates = dates[:n]
		cl = cl[:n]
	}
	outDates := make([]time.Time, 0, len(dates))
	outCl := make([]float64, 0, len(cl))
	for i := 0; i < len(dates); i++ {
		v := cl[i]
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		outDates = append(outDates, dates[i])
		outCl = append(outCl, v)
	}
	return outDates, outCl
}

// dedupeDates keeps the last value seen for each date. Yahoo occasionally
// returns the live session bar next to the finished daily bar.
func dedupeDates(dates []time.Time, cl []float64) ([]time.Time, []float64) {
	outDates := make([]time.Time, 0, len(dates))
	outCl := make([]float64, 0, len(cl))
	for i, d := range dates {
		if n := len(outDates); n > 0 && outDates[n-1].Equal(d) {
			outCl[n-1] = cl[i]
			continue
		}
		outDates = append(outDates, d)
		outCl = append(outCl, cl[i])
	}
	return outDates, outCl
}
