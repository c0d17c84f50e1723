package engine

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"multisender-core/pkg/errno"
)

// ToMinorUnits converts a human decimal string into integer minor units at
// the given precision. Only non-negative decimal numerals are accepted:
// digits with at most one '.'. Fractional digits beyond the asset's decimals
// are rejected rather than truncated, so a typo can never silently burn
// sub-unit value.
func ToMinorUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errno.ErrMalformedAmount
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return nil, errno.ErrMalformedAmount
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, errno.ErrMalformedAmount
	}
	if len(fracPart) > int(decimals) {
		return nil, errno.ErrMalformedAmount
	}

	// 左边整数部分 + 右边补零到 decimals 位
	combined := intPart + fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	v, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, errno.ErrMalformedAmount
	}
	return v, nil
}

// ToPositiveMinorUnits is ToMinorUnits with the strictly-positive requirement
// recipient amounts and totals carry.
func ToPositiveMinorUnits(s string, decimals uint8) (*big.Int, error) {
	v, err := ToMinorUnits(s, decimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, errno.ErrNonPositiveAmount
	}
	return v, nil
}

// ToDecimalString renders minor units back into a human decimal string with
// trailing zeros normalized away. Total function: any non-negative x and
// decimals up to 77 round-trips through ToMinorUnits.
func ToDecimalString(x *big.Int, decimals uint8) string {
	if x == nil {
		return "0"
	}
	return decimal.NewFromBigInt(new(big.Int).Set(x), -int32(decimals)).String()
}

// isDigits accepts the empty string; the caller rejects the case where both
// sides of the point are empty.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
