package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawToFloat64(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		want     float64
		wantErr  error
	}{
		{name: "one APT in octas", raw: "100000000", decimals: 8, want: 1},
		{name: "usdc six decimals", raw: "2500000", decimals: 6, want: 2.5},
		{name: "zero decimals", raw: "42", decimals: 0, want: 42},
		{name: "empty is zero", raw: "", decimals: 8, want: 0},
		{name: "not an integer", raw: "1.5", decimals: 8, wantErr: ErrInvalidAmount},
		{name: "negative", raw: "-1", decimals: 8, wantErr: ErrAmountNegative},
		{name: "precision too high", raw: "1", decimals: 19, wantErr: ErrInvalidDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RawToFloat64(tt.raw, tt.decimals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestIntToFloat64NilIsZero(t *testing.T) {
	got, err := IntToFloat64(sdkmath.Int{}, 8)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestFloatToRaw(t *testing.T) {
	got, err := FloatToRaw(1.5, 8)
	require.NoError(t, err)
	assert.Equal(t, "150000000", got)

	got, err = FloatToRaw(0.1234567, 6)
	require.NoError(t, err)
	assert.Equal(t, "123457", got, "rounded to the token precision")

	got, err = FloatToRaw(0, 8)
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	_, err = FloatToRaw(-1, 8)
	assert.ErrorIs(t, err, ErrAmountNegative)
}

func TestFormatPortfolioPercentage(t *testing.T) {
	assert.Equal(t, "60.00%", FormatPortfolioPercentage(600, 1000))
	assert.Equal(t, "40.00%", FormatPortfolioPercentage(400, 1000))
	assert.Equal(t, "33.33%", FormatPortfolioPercentage(1, 3))
	assert.Equal(t, "0.00%", FormatPortfolioPercentage(5, 0))
}

func TestYearlyGain(t *testing.T) {
	gain := YearlyGain(700, 0, 7.8)
	assert.True(t, gain.Equal(decimal.RequireFromString("54.6")), gain.String())
	assert.Equal(t, "+$54.60/year", FormatYearlyGain(gain))

	assert.Equal(t, "+$0.00/year", FormatYearlyGain(YearlyGain(100, 5, 5)))
}
