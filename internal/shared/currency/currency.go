// Package currency wraps ISO 4217 lookups.
package currency

import (
	"github.com/Rhymond/go-money"
)

// Default is the quote currency appended to currency pair and crypto symbols (e.g. EURUSD, BTCUSD).
const Default = "USD"

// IsCurrency reports whether code is a known ISO 4217 currency code.
func IsCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	return money.GetCurrency(code) != nil
}

// IsCurrencyPair reports whether symbol looks like "<currency>USD", for example "EURUSD".
func IsCurrencyPair(symbol string) bool {
	if len(symbol) <= len(Default) {
		return false
	}
	return IsCurrency(symbol[:len(symbol)-len(Default)])
}

// Quote returns the trailing quote currency of a pair symbol.
func Quote(symbol string) string {
	if len(symbol) < len(Default) {
		return ""
	}
	return symbol[len(symbol)-len(Default):]
}
