package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Currency represents a currency code (e.g., "USD", "IDR").
type Currency string

// The widget tracks a single pair.
const (
	BaseCurrency   Currency = "USD"
	TargetCurrency Currency = "IDR"
)

const (
	// CacheDuration is how long a fetched latest rate or historical series stays servable.
	CacheDuration = 30 * time.Minute
	// PacingDelay is the wait between successful historical fetches.
	PacingDelay = 500 * time.Millisecond
	// MaxSamples caps the planner output, excluding the forced end date.
	MaxSamples = 20
)

var (
	ErrUnknownRange    = errors.New("unknown range key")
	ErrUnknownViewMode = errors.New("unknown view mode")
)

// RangeKey selects a historical lookback window.
type RangeKey string

const (
	Range24h RangeKey = "24h"
	Range7d  RangeKey = "7d"
	Range1m  RangeKey = "1m"
	Range3m  RangeKey = "3m"
	Range1y  RangeKey = "1y"
	Range5y  RangeKey = "5y"
	Range10y RangeKey = "10y"
	RangeMax RangeKey = "max"
)

// AllRanges lists the range keys in selector order.
var AllRanges = []RangeKey{Range24h, Range7d, Range1m, Range3m, Range1y, Range5y, Range10y, RangeMax}

// ParseRangeKey validates a range selector value.
func ParseRangeKey(s string) (RangeKey, error) {
	key := RangeKey(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range AllRanges {
		if r == key {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRange, s)
}

// StartDate subtracts the range's lookback from end in calendar units.
// Unrecognised keys fall back to one year.
func (r RangeKey) StartDate(end time.Time) time.Time {
	switch r {
	case Range24h:
		return end.AddDate(0, 0, -1)
	case Range7d:
		return end.AddDate(0, 0, -7)
	case Range1m:
		return end.AddDate(0, -1, 0)
	case Range3m:
		return end.AddDate(0, -3, 0)
	case Range1y:
		return end.AddDate(-1, 0, 0)
	case Range5y:
		return end.AddDate(-5, 0, 0)
	case Range10y:
		return end.AddDate(-10, 0, 0)
	case RangeMax:
		return end.AddDate(-20, 0, 0)
	default:
		return end.AddDate(-1, 0, 0)
	}
}

// ViewMode is the display orientation of the pair.
type ViewMode string

const (
	ModeDirect  ViewMode = "usd-to-idr"
	ModeInverse ViewMode = "idr-to-usd"
)

// ParseViewMode validates a mode toggle value.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDirect, ModeInverse:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownViewMode, s)
}

// Direction is the movement indicator next to the current rate.
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// RateDisplay is the derived current-rate text plus its direction arrow.
type RateDisplay struct {
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
	Mode      ViewMode  `json:"mode"`
}

type CustomDate time.Time

func (cd *CustomDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*cd = CustomDate(t)
	return nil
}

func (cd CustomDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(cd).Format("2006-01-02") + `"`), nil
}

func (cd CustomDate) ToTime() time.Time {
	return time.Time(cd)
}

// RatePoint is one day's rate, in target units per one base unit.
type RatePoint struct {
	Date CustomDate `json:"date"`
	Rate float64    `json:"rate"`
}

// NewRatePoint truncates date to its calendar day.
func NewRatePoint(date time.Time, rate float64) RatePoint {
	return RatePoint{Date: CustomDate(Day(date)), Rate: rate}
}

// Day returns midnight of t's calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HistoricalSeries is ordered ascending by date once handed out by the repository.
type HistoricalSeries []RatePoint

// RatesResponse is the exchangerate-api envelope shared by the latest and history endpoints.
type RatesResponse struct {
	Result             string               `json:"result"`
	ConversionRates    map[Currency]float64 `json:"conversion_rates"`
	ErrorType          string               `json:"error-type,omitempty"`
	Error              string               `json:"error,omitempty"`
	TimeLastUpdateUnix int64                `json:"time_last_update_unix,omitempty"`
}

const (
	ResultSuccess = "success"
	ResultError   = "error"

	ErrorTypePlanUpgradeRequired = "plan-upgrade-required"
	ErrorTypeNoDataAvailable     = "no-data-available"
)

func (r *RatesResponse) Succeeded() bool {
	return r != nil && r.Result == ResultSuccess
}

// ErrorDetail prefers the documented error-type field over the free-form error field.
func (r *RatesResponse) ErrorDetail() string {
	if r == nil {
		return ""
	}
	if r.ErrorType != "" {
		return r.ErrorType
	}
	return r.Error
}

// Rate looks up a currency in the conversion table; absent or non-positive rates are misses.
func (r *RatesResponse) Rate(c Currency) (float64, bool) {
	if r == nil {
		return 0, false
	}
	rate, ok := r.ConversionRates[c]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}
