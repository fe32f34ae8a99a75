package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"icepay-gateway/internal/domains/payment/model"
)

// AmountMatcher cross-checks a reported amount against the order total.
type AmountMatcher struct{}

// Matches requires the exact currency and the exact number of minor units.
func (AmountMatcher) Matches(reportedMinor int64, reportedCurrency string, order *model.Order) bool {
	if order == nil || !strings.EqualFold(reportedCurrency, order.Currency) {
		return false
	}
	expected, ok := ToMinorUnits(order.Total, order.Currency)
	return ok && expected == reportedMinor
}

// ToMinorUnits converts a decimal amount to the currency's minor units.
// Amounts with sub-minor precision are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, bool) {
	scaled := amount.Shift(currencyExponent(currency))
	if !scaled.IsInteger() || scaled.IsNegative() {
		return 0, false
	}
	return scaled.IntPart(), true
}

// FromMinorUnits converts minor units back to a decimal amount.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -currencyExponent(currency))
}

func currencyExponent(currency string) int32 {
	if exp, ok := model.CurrencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return model.DefaultCurrencyExponent
}
