// Package chart turns a historical series into a renderer-neutral line chart description.
package chart

import (
	"time"

	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/helpers"
)

type TimeUnit string

const (
	UnitHour    TimeUnit = "hour"
	UnitDay     TimeUnit = "day"
	UnitWeek    TimeUnit = "week"
	UnitMonth   TimeUnit = "month"
	UnitQuarter TimeUnit = "quarter"
	UnitYear    TimeUnit = "year"
)

// DisplayFormats are the x-axis tick patterns per unit in date-fns notation.
var DisplayFormats = map[TimeUnit]string{
	UnitHour:    "HH:mm",
	UnitDay:     "MMM d",
	UnitWeek:    "MMM d",
	UnitMonth:   "MMM yyyy",
	UnitQuarter: "MMM yyyy",
	UnitYear:    "yyyy",
}

// goLayouts mirror DisplayFormats for server-side tick labels.
var goLayouts = map[TimeUnit]string{
	UnitHour:    "15:04",
	UnitDay:     "Jan 2",
	UnitWeek:    "Jan 2",
	UnitMonth:   "Jan 2006",
	UnitQuarter: "Jan 2006",
	UnitYear:    "2006",
}

const xAxisTitle = "Date"

// Point is one plotted value with its preformatted labels.
type Point struct {
	X       time.Time `json:"x"`
	Y       float64   `json:"y"`
	Tick    string    `json:"tick"`
	Value   string    `json:"value"`
	Tooltip string    `json:"tooltip"`
}

// Config is everything a line chart renderer needs.
type Config struct {
	Type           string              `json:"type"`
	Label          string              `json:"label"`
	XAxisTitle     string              `json:"xAxisTitle"`
	YAxisTitle     string              `json:"yAxisTitle"`
	Unit           TimeUnit            `json:"unit"`
	DisplayFormats map[TimeUnit]string `json:"displayFormats"`
	Points         []Point             `json:"points"`
}

// TimeUnitFor picks the x-axis granularity for a range.
func TimeUnitFor(key domain.RangeKey) TimeUnit {
	switch key {
	case domain.Range24h:
		return UnitHour
	case domain.Range7d, domain.Range1m:
		return UnitDay
	case domain.Range3m:
		return UnitWeek
	case domain.Range1y:
		return UnitMonth
	case domain.Range5y:
		return UnitQuarter
	case domain.Range10y, domain.RangeMax:
		return UnitYear
	default:
		return UnitMonth
	}
}

func AxisLabel(mode domain.ViewMode) string {
	if mode == domain.ModeInverse {
		return "IDR to USD Rate"
	}
	return "USD to IDR Rate"
}

// FormatTick formats a y-axis value.
func FormatTick(v float64, mode domain.ViewMode) string {
	if mode == domain.ModeInverse {
		return helpers.FormatFixed(v, 8)
	}
	return helpers.FormatLocale(v)
}

// FormatTooltip renders "<label>: <value>" the way the hover tooltip shows it.
func FormatTooltip(v float64, mode domain.ViewMode) string {
	places := int32(2)
	if mode == domain.ModeInverse {
		places = 8
	}
	return AxisLabel(mode) + ": " + helpers.FormatFixed(v, places)
}

// Present maps series into chart space for mode. Inverse mode plots 1/rate.
// Callers handle the empty series themselves.
func Present(series domain.HistoricalSeries, mode domain.ViewMode, key domain.RangeKey) Config {
	unit := TimeUnitFor(key)
	label := AxisLabel(mode)

	points := make([]Point, 0, len(series))
	for _, p := range series {
		y := p.Rate
		if mode == domain.ModeInverse {
			y = helpers.Reciprocal(y)
		}
		x := p.Date.ToTime()
		points = append(points, Point{
			X:       x,
			Y:       y,
			Tick:    x.Format(goLayouts[unit]),
			Value:   FormatTick(y, mode),
			Tooltip: FormatTooltip(y, mode),
		})
	}

	return Config{
		Type:           "line",
		Label:          label,
		XAxisTitle:     xAxisTitle,
		YAxisTitle:     label,
		Unit:           unit,
		DisplayFormats: DisplayFormats,
		Points:         points,
	}
}
