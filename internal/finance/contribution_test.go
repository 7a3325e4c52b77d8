package finance

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyInitialContribution(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		amount   string
		final    string
		gain     string
	}{
		{"gain", 0.21, "1000", "1210", "210"},
		{"loss", -0.10, "1000", "900", "-100"},
		{"flat", 0, "2500.50", "2500.50", "0"},
		{"zero amount", 0.5, "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ApplyInitialContribution(tt.fraction, decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.True(t, c.Final.Equal(decimal.RequireFromString(tt.final)), "final = %s", c.Final)
			assert.True(t, c.Gain.Equal(decimal.RequireFromString(tt.gain)), "gain = %s", c.Gain)
			assert.True(t, c.Amount.Equal(decimal.RequireFromString(tt.amount)))
		})
	}

	t.Run("negative amount", func(t *testing.T) {
		_, err := ApplyInitialContribution(0.1, decimal.NewFromInt(-5))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("undefined return", func(t *testing.T) {
		_, err := ApplyInitialContribution(math.NaN(), decimal.NewFromInt(5))
		assert.Error(t, err)
	})
}

func TestParseAmount(t *testing.T) {
	t.Run("blank means unset", func(t *testing.T) {
		for _, in := range []string{"", "   "} {
			a, err := ParseAmount(in)
			require.NoError(t, err)
			assert.False(t, a.Valid)
		}
	})

	t.Run("zero is a set amount", func(t *testing.T) {
		a, err := ParseAmount("0")
		require.NoError(t, err)
		assert.True(t, a.Valid)
		assert.True(t, a.Decimal.IsZero())
	})

	t.Run("numbers", func(t *testing.T) {
		a, err := ParseAmount(" 1500.75 ")
		require.NoError(t, err)
		assert.True(t, a.Valid)
		assert.Equal(t, "1500.75", a.Decimal.String())
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"abc", "R$", "1,000", "-10"} {
			_, err := ParseAmount(in)
			assert.ErrorIs(t, err, ErrInvalidAmount, in)
		}
	})
}
