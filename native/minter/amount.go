package minter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// MaxAmount is the largest value representable as a 128-bit unsigned amount.
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// ParseAmount decodes a base-10 128-bit unsigned amount as carried in JSON payloads.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount required", ErrInvalidAmount)
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "+") {
		return nil, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidAmount, trimmed)
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, trimmed, err)
	}
	if value.BitLen() > 128 {
		return nil, fmt.Errorf("%w: %q exceeds 128 bits", ErrInvalidAmount, trimmed)
	}
	return value.ToBig(), nil
}

// FormatAmount renders an amount as a decimal string; nil renders as zero.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func validAmount(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(MaxAmount) <= 0
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
