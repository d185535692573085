package helpers

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatFixed rounds half away from zero to exactly places decimals.
func FormatFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Reciprocal returns 1/v, or 0 for a zero rate.
func Reciprocal(v float64) float64 {
	if v == 0 {
		return 0
	}
	return 1 / v
}

// FormatLocale formats v for en-US: grouped thousands, at most three fraction digits.
func FormatLocale(v float64) string {
	printer := message.NewPrinter(language.AmericanEnglish)
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
