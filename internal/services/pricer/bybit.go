package pricer

import (
	"context"
	"fmt"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"

	"krakenreport/internal/domain"
)

// BybitPricer fetches spot ticker prices from the Bybit V5 API.
type BybitPricer struct {
	client *bybit.Client
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

func (p *BybitPricer) GetPrice(_ context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("bybit API returned empty prices for %s", pair.String())
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}
