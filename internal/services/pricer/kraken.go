package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"krakenreport/internal/domain"
	"krakenreport/pkg/retrier"
)

// DefaultKrakenTickerURL public Ticker endpoint, no credentials required.
const DefaultKrakenTickerURL = "https://api.kraken.com/0/public/Ticker"

// KrakenPricer fetches last-trade prices from the Kraken public Ticker API.
type KrakenPricer struct {
	client  *http.Client
	apiURL  string
	retrier *retrier.Retrier
}

// NewKrakenPricer creates a pricer against the public Kraken API. A fetch
// timeout degrades to a per-pair error, never a run abort.
func NewKrakenPricer(timeout time.Duration) *KrakenPricer {
	return &KrakenPricer{
		client:  &http.Client{Timeout: timeout},
		apiURL:  DefaultKrakenTickerURL,
		retrier: retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(200*time.Millisecond)),
	}
}

// NewKrakenPricerWithURL creates a pricer against a custom endpoint.
func NewKrakenPricerWithURL(apiURL string, timeout time.Duration) *KrakenPricer {
	p := NewKrakenPricer(timeout)
	p.apiURL = apiURL
	return p
}

// GetPrice returns the last trade price for the pair.
func (p *KrakenPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	code := krakenPairCode(pair)

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return p.fetch(ctx, pair, code)
	})
}

func (p *KrakenPricer) fetch(ctx context.Context, pair domain.Pair, code string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"?pair="+url.QueryEscape(code), nil)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "build kraken ticker request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "fetch kraken ticker for %s", pair.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("kraken API returned status %d for %s", resp.StatusCode, pair.String())
	}

	var payload struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Close []string `json:"c"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "decode kraken ticker response for %s", pair.String())
	}
	if len(payload.Error) > 0 {
		return decimal.Decimal{}, fmt.Errorf("kraken API error for %s: %s", pair.String(), strings.Join(payload.Error, "; "))
	}
	if len(payload.Result) == 0 {
		return decimal.Decimal{}, fmt.Errorf("kraken API returned empty result for %s", pair.String())
	}

	for _, ticker := range payload.Result {
		if len(ticker.Close) == 0 || ticker.Close[0] == "" {
			return decimal.Decimal{}, fmt.Errorf("kraken API returned no closing price for %s", pair.String())
		}
		return decimal.NewFromString(ticker.Close[0])
	}

	return decimal.Decimal{}, fmt.Errorf("kraken API returned empty result for %s", pair.String())
}

// krakenPairCode converts a statement pair into Kraken API format, which
// drops the separator and spells BTC as XBT.
func krakenPairCode(pair domain.Pair) string {
	return strings.ReplaceAll(pair.Symbol(), "BTC", "XBT")
}
