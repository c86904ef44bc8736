package internal

import (
	"time"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"krakenreport/internal/services/pricer"
)

// NewPricer dispatches to the platform-specific live price source. All
// sources use public market data endpoints, no credentials required.
func NewPricer(platform string, timeout time.Duration) (pricer.Pricer, error) {
	switch platform {
	case "kraken":
		return pricer.NewKrakenPricer(timeout), nil
	case "binance":
		return pricer.NewBinancePricer(binance.NewClient("", "")), nil
	case "bybit":
		return pricer.NewBybitPricer(bybit.NewClient()), nil
	default:
		return nil, errors.Errorf("unsupported platform: %s", platform)
	}
}
