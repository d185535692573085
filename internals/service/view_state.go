package service

import (
	"errors"
	"fmt"

	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/helpers"
)

var ErrNoLatestRate = errors.New("latest rate not available")

// ViewState owns the display mode and the last raw rate shown to the user.
// It is not safe for concurrent use; WidgetService serialises access.
type ViewState struct {
	mode          domain.ViewMode
	previousRate  float64
	hasPrevious   bool
	lastDirection domain.Direction
}

func NewViewState(mode domain.ViewMode) *ViewState {
	if mode == "" {
		mode = domain.ModeDirect
	}
	return &ViewState{mode: mode, lastDirection: domain.DirectionNone}
}

func (v *ViewState) Mode() domain.ViewMode {
	return v.mode
}

// PreviousRate is the raw USD->IDR rate last passed through ComputeDisplay.
func (v *ViewState) PreviousRate() (float64, bool) {
	return v.previousRate, v.hasPrevious
}

// ComputeDisplay derives the rate text for mode and records latest as the
// previous rate. Direction always compares raw USD->IDR rates.
func (v *ViewState) ComputeDisplay(latest *domain.RatesResponse, mode domain.ViewMode) (domain.RateDisplay, error) {
	rate, ok := latest.Rate(domain.TargetCurrency)
	if !ok {
		return domain.RateDisplay{}, ErrNoLatestRate
	}

	direction := domain.DirectionNone
	if v.hasPrevious {
		switch {
		case rate > v.previousRate:
			direction = domain.DirectionUp
		case rate < v.previousRate:
			direction = domain.DirectionDown
		default:
			direction = domain.DirectionFlat
		}
	}

	v.mode = mode
	v.previousRate = rate
	v.hasPrevious = true
	v.lastDirection = direction

	return domain.RateDisplay{
		Text:      rateText(rate, mode),
		Direction: direction,
		Mode:      mode,
	}, nil
}

// SwitchMode changes the mode without a fetch. The text is rebuilt from the
// previous rate; direction and previous rate are left as they were. ok is false
// when nothing has been displayed yet.
func (v *ViewState) SwitchMode(mode domain.ViewMode) (display domain.RateDisplay, ok bool) {
	v.mode = mode
	if !v.hasPrevious {
		return domain.RateDisplay{}, false
	}
	return domain.RateDisplay{
		Text:      rateText(v.previousRate, mode),
		Direction: v.lastDirection,
		Mode:      mode,
	}, true
}

func rateText(rate float64, mode domain.ViewMode) string {
	if mode == domain.ModeInverse {
		return fmt.Sprintf("1 %s = %s %s", domain.TargetCurrency, helpers.FormatFixed(helpers.Reciprocal(rate), 8), domain.BaseCurrency)
	}
	return fmt.Sprintf("1 %s = %s %s", domain.BaseCurrency, helpers.FormatFixed(rate, 2), domain.TargetCurrency)
}
