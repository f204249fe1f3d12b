// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var narrowSymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
	"CAD": "$",
	"AUD": "$",
	"NZD": "$",
	"CHF": "CHF ",
	"INR": "₹",
}

var (
	moneyMu      sync.RWMutex
	moneySymbol  = "£"
	moneyPrinter = message.NewPrinter(language.BritishEnglish)
)

// SetCurrency selects the ISO 4217 currency used by FormatMoney.
func SetCurrency(code string) error {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return fmt.Errorf("parsing currency %q: %w", code, err)
	}
	iso := unit.String()
	symbol, ok := narrowSymbols[iso]
	if !ok {
		symbol = iso + " "
	}

	tag := language.BritishEnglish
	if iso == "USD" {
		tag = language.AmericanEnglish
	}

	moneyMu.Lock()
	defer moneyMu.Unlock()
	moneySymbol = symbol
	moneyPrinter = message.NewPrinter(tag)
	return nil
}

// FormatMoney formats a whole-unit amount with the currency symbol and
// locale grouping. e.g., 1234567.4 -> "£1,234,567"
func FormatMoney(v float64) string {
	moneyMu.RLock()
	defer moneyMu.RUnlock()
	if v < 0 {
		return "-" + moneySymbol + moneyPrinter.Sprintf("%d", int64(math.Round(-v)))
	}
	return moneySymbol + moneyPrinter.Sprintf("%d", int64(math.Round(v)))
}

// FormatCompactMoney abbreviates large amounts for chart labels.
// e.g., 1234 -> "£1.2K", 2500000 -> "£2.5M"
func FormatCompactMoney(v float64) string {
	moneyMu.RLock()
	symbol := moneySymbol
	moneyMu.RUnlock()

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%s%s%.1fB", sign, symbol, v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%s%s%.1fM", sign, symbol, v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%s%s%.1fK", sign, symbol, v/1_000)
	default:
		return fmt.Sprintf("%s%s%.0f", sign, symbol, v)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a fractional rate as a percentage string.
// e.g., 0.029 -> "2.9%"
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatHitRate renders a whole-number percentage, or "n/a" when there was
// no target.
func FormatHitRate(pct *int) string {
	if pct == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", *pct)
}

// FormatRisk renders a percentage with one decimal, or "n/a" when there was
// no target.
func FormatRisk(pct *float64) string {
	if pct == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *pct)
}

// FormatDelta formats a money delta with an explicit sign.
func FormatDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatMoney(delta)
	}
	return FormatMoney(delta)
}

// FormatDuration formats milliseconds into a short human-readable duration.
// e.g., 450 -> "450ms", 3200 -> "3.2s", 125000 -> "2m 5s"
func FormatDuration(ms int64) string {
	switch {
	case ms <= 0:
		return "0ms"
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	secs := ms / 1000
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
