// Package sampling picks the calendar dates fetched for a historical range.
package sampling

import (
	"math"
	"time"

	"exchange-widget/internals/core/domain"
)

// BaseInterval is the minimum spacing in days between samples for a range.
func BaseInterval(key domain.RangeKey) int {
	switch key {
	case domain.Range7d:
		return 1
	case domain.Range1m:
		return 3
	case domain.Range3m:
		return 7
	case domain.Range1y:
		return 14
	case domain.Range5y:
		return 30
	case domain.Range10y:
		return 60
	case domain.RangeMax:
		return 180
	default:
		return 30
	}
}

// Interval widens the base interval so the walk yields at most MaxSamples dates.
func Interval(start, end time.Time, key domain.RangeKey) int {
	totalDays := int(math.Ceil(end.Sub(start).Hours() / 24))
	adaptive := int(math.Ceil(float64(totalDays) / domain.MaxSamples))
	return max(BaseInterval(key), adaptive)
}

// Plan returns ascending sample dates in [start, end]. The 24h range only
// samples end. Otherwise end is appended when the walk misses it. start after
// end yields nil.
func Plan(start, end time.Time, key domain.RangeKey) []time.Time {
	if key == domain.Range24h {
		return []time.Time{end}
	}
	if start.After(end) {
		return nil
	}

	step := Interval(start, end, key)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, step) {
		dates = append(dates, d)
	}
	if last := dates[len(dates)-1]; !last.Equal(end) {
		dates = append(dates, end)
	}
	return dates
}
