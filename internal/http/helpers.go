package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatAmount renders d in currency using its grapheme and separators.
// Unknown currencies fall back to the plain decimal with two places.
func formatAmount(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return d.StringFixed(2)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := d.Mul(factor).Round(0)
	if !minor.BigInt().IsInt64() {
		return displayLarge(d, cur)
	}
	return money.New(minor.IntPart(), cur.Code).Display()
}

// displayLarge lays out amounts beyond int64 minor units the way
// money.Display does.
func displayLarge(d decimal.Decimal, cur *money.Currency) string {
	s := d.Abs().StringFixed(int32(cur.Fraction))
	whole, frac, _ := strings.Cut(s, ".")
	if cur.Thousand != "" {
		for i := len(whole) - 3; i > 0; i -= 3 {
			whole = whole[:i] + cur.Thousand + whole[i:]
		}
	}
	if frac != "" {
		whole += cur.Decimal + frac
	}
	out := strings.Replace(cur.Template, "1", whole, 1)
	out = strings.Replace(out, "$", cur.Grapheme, 1)
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	return "req_" + randomHex(8)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
