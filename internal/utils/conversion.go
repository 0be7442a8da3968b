/*
This file converts between on-chain integer amounts (octas, token base units) and
decimal-adjusted quantities, using SDK math so no precision is lost before the final float.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// MaxDecimals is the largest token precision accepted by the conversions.
const MaxDecimals = 18

// Error definitions for amount conversion
var (
	ErrInvalidDecimals  = errors.New("decimals are invalid")
	ErrInvalidAmount    = errors.New("amount is not an integer")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// ParseRawAmount parses an on-chain integer amount such as "150000000".
func ParseRawAmount(raw string) (sdkmath.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sdkmath.ZeroInt(), nil
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount, nil
}

// RawToFloat64 converts an integer string in base units into a decimal-adjusted quantity.
func RawToFloat64(raw string, decimals int) (float64, error) {
	amount, err := ParseRawAmount(raw)
	if err != nil {
		return 0, err
	}
	return IntToFloat64(amount, decimals)
}

// IntToFloat64 divides amount by 10^decimals.
func IntToFloat64(amount sdkmath.Int, decimals int) (float64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, decimals, MaxDecimals)
	}
	if amount.IsNil() {
		return 0, nil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	result := sdkmath.LegacyNewDecFromInt(amount).Quo(decimalFactor(decimals))
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// FloatToRaw converts a decimal quantity into an integer string in base units, rounded to the token precision.
func FloatToRaw(amount float64, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, decimals, MaxDecimals)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return "", ErrAmountNegative
	}
	if amount == 0 {
		return "0", nil
	}

	// Use string conversion to avoid floating point precision issues
	amountStr := fmt.Sprintf("%.*f", decimals, amount)
	decAmount, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}

	return decAmount.Mul(decimalFactor(decimals)).TruncateInt().String(), nil
}

func decimalFactor(decimals int) sdkmath.LegacyDec {
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < decimals; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}
	return factor
}
