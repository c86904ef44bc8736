package parser

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"krakenreport/internal/domain"
	"krakenreport/internal/services/extractor"
	"krakenreport/internal/services/portfolio"
	"krakenreport/internal/services/pricer"
)

type fixedPricer struct {
	price decimal.Decimal
}

func (f fixedPricer) GetPrice(_ context.Context, _ domain.Pair) (decimal.Decimal, error) {
	return f.price, nil
}

var _ pricer.Pricer = fixedPricer{}

func statementLines(rows ...string) []extractor.Line {
	lines := make([]extractor.Line, 0, len(rows))
	for i, row := range rows {
		lines = append(lines, extractor.Line{Text: row, Page: 1, Number: i + 1})
	}
	return lines
}

func TestParse(t *testing.T) {
	p := New(zap.NewNop())

	t.Run("clean statement", func(t *testing.T) {
		trades, warnings, err := p.Parse(statementLines(
			"Kraken Trade Statement",
			"Date Unique ID Pair Type Subtype Price Cost Volume Fee Margin",
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
			"2024-02-15",
			"TX-BBB-222 BTC/EUR Sell Market 25000.00 10000.00 0.40000000 5.00 0.00",
			"Page 1 of 1",
		))
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, trades, 2)

		buy := trades[0]
		assert.Equal(t, "TX-AAA-111", buy.UniqueID)
		assert.Equal(t, domain.Pair{Token: "BTC", Currency: "EUR"}, buy.Pair)
		assert.Equal(t, domain.Buy, buy.TradeType)
		assert.Equal(t, domain.Limit, buy.ExecutionType)
		assert.True(t, buy.TradePrice.Equal(decimal.RequireFromString("20000.00")))
		assert.True(t, buy.TransactionPrice.Equal(decimal.RequireFromString("20000")))
		assert.True(t, buy.TransferredVolume.Equal(decimal.RequireFromString("1.0")))
		assert.True(t, buy.Fee.Equal(decimal.RequireFromString("10.00")))
		assert.Equal(t, "2024-01-10", buy.TradeDate.Format("2006-01-02"))

		sell := trades[1]
		assert.Equal(t, domain.Sell, sell.TradeType)
		assert.Equal(t, domain.Market, sell.ExecutionType)
		assert.True(t, sell.TransferredVolume.Equal(decimal.RequireFromString("0.4")))
		// cost column holds the trade total, 10000 / 0.4 = 25000 per unit
		assert.True(t, sell.TransactionPrice.Equal(decimal.RequireFromString("25000")))
	})

	t.Run("cost column is a total, record carries the unit price", func(t *testing.T) {
		trades, _, err := p.Parse(statementLines(
			"2024-01-10",
			"TX-AAA-111 ADA/EUR Buy Limit 0.50 500.00 1000.00000000 1.00 0.00",
		))
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, trades[0].TransactionPrice.Equal(decimal.RequireFromString("0.5")),
			"expected 0.5, got %s", trades[0].TransactionPrice.String())
	})

	t.Run("thousands separators normalized", func(t *testing.T) {
		trades, _, err := p.Parse(statementLines(
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20,000.00 20,000.00 1.00000000 10.00 0.00",
		))
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, trades[0].TradePrice.Equal(decimal.RequireFromString("20000")))
	})

	t.Run("noise rows skipped silently", func(t *testing.T) {
		trades, warnings, err := p.Parse(statementLines(
			"Account summary",
			"",
			"Totals 12345.00",
			"Page 3 of 9",
		))
		require.NoError(t, err)
		assert.Empty(t, trades)
		assert.Empty(t, warnings)
	})

	t.Run("date row followed by page footer skipped", func(t *testing.T) {
		trades, _, err := p.Parse(statementLines(
			"2024-01-10",
			"Page 1 of 2",
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
		))
		require.NoError(t, err)
		assert.Len(t, trades, 1)
	})

	t.Run("malformed price aborts with no partial list", func(t *testing.T) {
		trades, warnings, err := p.Parse(statementLines(
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
			"2024-02-15",
			"TX-BBB-222 BTC/EUR Sell Market notanumber 25000.00 0.40000000 5.00 0.00",
		))
		require.Error(t, err)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 4, parseErr.Number)
		assert.Contains(t, parseErr.Line, "TX-BBB-222")
		assert.Nil(t, trades)
		assert.Nil(t, warnings)
	})

	t.Run("pair without separator aborts", func(t *testing.T) {
		_, _, err := p.Parse(statementLines(
			"2024-01-10",
			"TX-AAA-111 BTCEUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
		))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("duplicate unique id keeps first occurrence", func(t *testing.T) {
		trades, warnings, err := p.Parse(statementLines(
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Sell Market 25000.00 10000.00 0.40000000 5.00 0.00",
		))
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, domain.Buy, trades[0].TradeType)

		require.Len(t, warnings, 1)
		assert.Equal(t, domain.DuplicateTrade, warnings[0].Kind)
		assert.Contains(t, warnings[0].Detail, "TX-AAA-111")
	})

	t.Run("parsed records aggregate to statement totals", func(t *testing.T) {
		trades, _, err := p.Parse(statementLines(
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
			"2024-02-15",
			"TX-BBB-222 BTC/EUR Sell Market 25000.00 10000.00 0.40000000 5.00 0.00",
		))
		require.NoError(t, err)

		agg := portfolio.New(fixedPricer{price: decimal.RequireFromString("30000")}, zap.NewNop())
		result, err := agg.Aggregate(context.Background(), trades)
		require.NoError(t, err)
		require.Len(t, result.Snapshots, 1)

		s := result.Snapshots[0]
		assert.True(t, s.BuyTotal.Equal(decimal.RequireFromString("20010")),
			"buy total: expected 20010, got %s", s.BuyTotal.String())
		assert.True(t, s.SellTotal.Equal(decimal.RequireFromString("9995")),
			"sell total: expected 9995, got %s", s.SellTotal.String())
		assert.True(t, s.CostBasisSold.Equal(decimal.RequireFromString("8004")))
		assert.True(t, s.RealizedROI.Equal(decimal.RequireFromString("24.8751")))
	})

	t.Run("idempotent over identical input", func(t *testing.T) {
		lines := statementLines(
			"2024-01-10",
			"TX-AAA-111 BTC/EUR Buy Limit 20000.00 20000.00 1.00000000 10.00 0.00",
			"2024-02-15",
			"TX-BBB-222 ADA/EUR Sell Market 0.50 50.00 100.00000000 0.10 0.00",
		)
		first, _, err := p.Parse(lines)
		require.NoError(t, err)
		second, _, err := p.Parse(lines)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
