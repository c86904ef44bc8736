package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		input    string
		expected Pair
		wantErr  bool
	}{
		{input: "BTC/EUR", expected: Pair{Token: "BTC", Currency: "EUR"}},
		{input: "1000CAT/EUR", expected: Pair{Token: "1000CAT", Currency: "EUR"}},
		{input: "BTCEUR", wantErr: true},
		{input: "/EUR", wantErr: true},
		{input: "BTC/", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pair, err := ParsePair(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pair)
		})
	}
}

func TestPairString(t *testing.T) {
	pair := Pair{Token: "BTC", Currency: "EUR"}
	assert.Equal(t, "BTC/EUR", pair.String())
	assert.Equal(t, "BTCEUR", pair.Symbol())
}

func TestParseTradeType(t *testing.T) {
	buy, err := ParseTradeType("Buy")
	require.NoError(t, err)
	assert.Equal(t, Buy, buy)

	sell, err := ParseTradeType("Sell")
	require.NoError(t, err)
	assert.Equal(t, Sell, sell)

	_, err = ParseTradeType("Short")
	assert.Error(t, err)
}

func TestNewTradeValidation(t *testing.T) {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	pair := Pair{Token: "BTC", Currency: "EUR"}
	one := decimal.NewFromInt(1)

	t.Run("valid trade", func(t *testing.T) {
		trade, err := NewTrade("TX-1", date, pair, Buy, Limit, one, one, one, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "TX-1", trade.UniqueID)
	})

	t.Run("empty unique id", func(t *testing.T) {
		_, err := NewTrade("", date, pair, Buy, Limit, one, one, one, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("negative fields rejected", func(t *testing.T) {
		neg := decimal.NewFromInt(-1)
		for name, args := range map[string][4]decimal.Decimal{
			"price":  {neg, one, one, decimal.Zero},
			"cost":   {one, neg, one, decimal.Zero},
			"volume": {one, one, neg, decimal.Zero},
			"fee":    {one, one, one, neg},
		} {
			_, err := NewTrade("TX-1", date, pair, Buy, Limit, args[0], args[1], args[2], args[3])
			assert.Error(t, err, name)
		}
	})
}
