package pricer

import (
	"context"
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"krakenreport/internal/domain"
)

// BinancePricer fetches prices from the Binance public ticker endpoint,
// used as an alternate live source for pairs Kraken no longer quotes.
type BinancePricer struct {
	client *binance.Client
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", pair.String())
	}

	return decimal.NewFromString(prices[0].Price)
}
