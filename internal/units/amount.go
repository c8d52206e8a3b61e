package units

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision shared by HONEY, LOCKS and PORRIDGE.
const Decimals = 18

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Wad returns a fresh 10^18.
func Wad() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
}

// Tokens returns n whole tokens in base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Wad())
}

// Format renders an 18-decimal amount with four fractional digits.
func Format(amount *big.Int) string {
	return FormatFixed(amount, Decimals, 4)
}

// FormatFixed renders base units as a decimal string with exactly places
// fractional digits.
func FormatFixed(amount *big.Int, decimals int32, places int32) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(places)
}

// FormatExact renders base units without trailing zeros.
func FormatExact(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// NormalizeAmount accepts either an integer in base units or a decimal token
// amount, never both, and returns base units.
func NormalizeAmount(baseUnits, decimalAmount string, decimals int32) (*big.Int, error) {
	baseUnits = strings.TrimSpace(baseUnits)
	decimalAmount = strings.TrimSpace(decimalAmount)
	if baseUnits != "" && decimalAmount != "" {
		return nil, clierr.New(clierr.CodeConfig, "use either a base-units amount or a decimal amount, not both")
	}
	if baseUnits == "" && decimalAmount == "" {
		return nil, clierr.New(clierr.CodeConfig, "amount is required")
	}
	if decimals < 0 {
		return nil, clierr.New(clierr.CodeConfig, "decimals must be >= 0")
	}
	if baseUnits != "" {
		return ParseBaseUnits(baseUnits)
	}
	return ParseDecimal(decimalAmount, decimals)
}

// ParseBaseUnits parses a non-negative base-10 integer.
func ParseBaseUnits(raw string) (*big.Int, error) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "-") {
		return nil, clierr.New(clierr.CodeConfig, "amount must be non-negative")
	}
	v, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("invalid base-units integer %q", raw))
	}
	return v, nil
}

// ParseDecimal converts a decimal token amount like "1.25" into base units.
func ParseDecimal(raw string, decimals int32) (*big.Int, error) {
	clean := strings.TrimSpace(raw)
	if !decimalPattern.MatchString(clean) {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("decimal amount must look like 1.23, got %q", raw))
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "parse decimal amount", err)
	}
	if -d.Exponent() > decimals {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}
	return d.Shift(decimals).BigInt(), nil
}
