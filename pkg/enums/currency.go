package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO-4217 alphabetic currency code.
type Currency string

const (
	CurrencyBRL Currency = "BRL"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyBRL,
	CurrencyUSD,
}

// IsValid reports whether the value is a supported currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into Currency, normalizing case.
func ParseCurrency(value string) (Currency, error) {
	normalized := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
