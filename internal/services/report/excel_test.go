package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"krakenreport/internal/domain"
	"krakenreport/internal/services/portfolio"
)

func testResult(t *testing.T) *portfolio.Result {
	t.Helper()

	pair := domain.Pair{Token: "BTC", Currency: "EUR"}
	buy, err := domain.NewTrade("TX-1", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), pair,
		domain.Buy, domain.Limit,
		decimal.RequireFromString("20000"), decimal.RequireFromString("20000"),
		decimal.RequireFromString("1"), decimal.RequireFromString("10"))
	require.NoError(t, err)

	snapshot := domain.PairSnapshot{
		Pair:            pair,
		MarketPrice:     decimal.RequireFromString("30000"),
		PriceKnown:      true,
		BuyVolume:       decimal.RequireFromString("1"),
		RemainingVolume: decimal.RequireFromString("1"),
		BuyTotal:        decimal.RequireFromString("20010"),
		Cost:            decimal.RequireFromString("20010"),
		CurrentValue:    decimal.RequireFromString("30000"),
		PotentialValue:  decimal.RequireFromString("30000"),
		TotalValue:      decimal.RequireFromString("30000"),
		PotentialROI:    decimal.RequireFromString("49.9250"),
	}

	return &portfolio.Result{
		Snapshots: []domain.PairSnapshot{snapshot},
		Breakdowns: []domain.PairBreakdown{{
			Pair:        pair,
			Buys:        []domain.Trade{buy},
			MarketPrice: snapshot.MarketPrice,
			PriceKnown:  true,
		}},
		Summaries: []domain.PortfolioSummary{{
			Token:           "BTC",
			Pair:            pair,
			TotalCost:       decimal.RequireFromString("20010"),
			UnrealizedValue: decimal.RequireFromString("30000"),
			TotalValue:      decimal.RequireFromString("30000"),
			PotentialROI:    decimal.RequireFromString("49.9250"),
		}},
		Warnings: []domain.Warning{
			{Kind: domain.PriceUnavailable, Pair: "ZEUS/EUR", Detail: "no price"},
		},
	}
}

func TestWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "summary.xlsx")
	w := NewWriter(zap.NewNop())

	fx := &FXColumn{Currency: "CZK", Rate: decimal.RequireFromString("25")}
	require.NoError(t, w.Write(path, testResult(t), fx))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	t.Run("sheets present, default sheet gone", func(t *testing.T) {
		sheets := f.GetSheetList()
		assert.Contains(t, sheets, "Portfolio")
		assert.Contains(t, sheets, "Asset ROI")
		assert.Contains(t, sheets, "BTCEUR")
		assert.NotContains(t, sheets, "Sheet1")
	})

	t.Run("portfolio summary row", func(t *testing.T) {
		token, err := f.GetCellValue("Portfolio", "A2")
		require.NoError(t, err)
		assert.Equal(t, "BTC", token)

		totalCost, err := f.GetCellValue("Portfolio", "C2")
		require.NoError(t, err)
		assert.Equal(t, "20010", totalCost)

		// 30000 * 25
		converted, err := f.GetCellValue("Portfolio", "I2")
		require.NoError(t, err)
		assert.Equal(t, "750000", converted)
	})

	t.Run("warnings listed", func(t *testing.T) {
		header, err := f.GetCellValue("Portfolio", "A4")
		require.NoError(t, err)
		assert.Equal(t, "Warnings", header)

		warning, err := f.GetCellValue("Portfolio", "A5")
		require.NoError(t, err)
		assert.Contains(t, warning, "ZEUS/EUR")
	})

	t.Run("asset ROI row", func(t *testing.T) {
		pair, err := f.GetCellValue("Asset ROI", "A2")
		require.NoError(t, err)
		assert.Equal(t, "BTC/EUR", pair)

		roi, err := f.GetCellValue("Asset ROI", "K2")
		require.NoError(t, err)
		assert.Equal(t, "49.925", roi)
	})

	t.Run("breakdown sheet buys leg", func(t *testing.T) {
		title, err := f.GetCellValue("BTCEUR", "A1")
		require.NoError(t, err)
		assert.Equal(t, "Buys", title)

		uid, err := f.GetCellValue("BTCEUR", "A3")
		require.NoError(t, err)
		assert.Equal(t, "TX-1", uid)
	})
}

func TestWriterWithoutFXColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	w := NewWriter(zap.NewNop())

	require.NoError(t, w.Write(path, testResult(t), nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Portfolio", "I1")
	require.NoError(t, err)
	assert.Empty(t, header)
}
