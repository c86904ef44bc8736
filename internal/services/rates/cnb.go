// Package rates provides CZK exchange rates from the Czech National Bank
// daily fixing, used to express report values in a secondary currency.
package rates

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krakenreport/pkg/retrier"
)

// DefaultCNBURL yearly fixing feed, pipe-separated TXT.
const DefaultCNBURL = "https://www.cnb.cz/en/financial-markets/foreign-exchange-market/central-bank-exchange-rate-fixing/central-bank-exchange-rate-fixing/year.txt"

const feedDateLayout = "02.01.2006"

// maxLookbackDays the fixing is published on business days only, so
// weekend and holiday dates look back to the last published rate.
const maxLookbackDays = 5

// CNBProvider resolves CZK rates by date. Whole years are fetched once and
// cached for the lifetime of the provider.
type CNBProvider struct {
	client  *http.Client
	apiURL  string
	retrier *retrier.Retrier
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[cacheKey]map[string]decimal.Decimal
}

type cacheKey struct {
	currency string
	year     int
}

// NewCNBProvider creates a provider against the public CNB feed.
func NewCNBProvider(timeout time.Duration, logger *zap.Logger) *CNBProvider {
	return &CNBProvider{
		client:  &http.Client{Timeout: timeout},
		apiURL:  DefaultCNBURL,
		retrier: retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(200*time.Millisecond)),
		logger:  logger,
		cache:   make(map[cacheKey]map[string]decimal.Decimal),
	}
}

// NewCNBProviderWithURL creates a provider against a custom feed endpoint.
func NewCNBProviderWithURL(apiURL string, timeout time.Duration, logger *zap.Logger) *CNBProvider {
	p := NewCNBProvider(timeout, logger)
	p.apiURL = apiURL
	return p
}

// Rate returns the CZK rate for one unit of the currency on the given
// date, falling back to the last published business day within the
// lookback window.
func (p *CNBProvider) Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	year := date.Year()
	rates, err := p.yearRates(ctx, currency, year)
	if err != nil {
		return decimal.Decimal{}, err
	}

	for i := 0; i <= maxLookbackDays; i++ {
		lookup := date.AddDate(0, 0, -i)
		if lookup.Year() != year {
			more, err := p.yearRates(ctx, currency, lookup.Year())
			if err != nil {
				break
			}
			rates = more
			year = lookup.Year()
		}
		if rate, ok := rates[lookup.Format("2006-01-02")]; ok {
			return rate, nil
		}
	}

	return decimal.Decimal{}, errors.Errorf("no %s fixing published within %d days before %s",
		currency, maxLookbackDays, date.Format("2006-01-02"))
}

func (p *CNBProvider) yearRates(ctx context.Context, currency string, year int) (map[string]decimal.Decimal, error) {
	key := cacheKey{currency: currency, year: year}

	p.mu.Lock()
	cached, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	body, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (string, error) {
		return p.fetchYear(ctx, year)
	})
	if err != nil {
		return nil, err
	}

	rates, err := parseYearFeed(body, currency)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("cached CNB fixing year",
		zap.String("currency", currency),
		zap.Int("year", year),
		zap.Int("days", len(rates)))

	p.mu.Lock()
	p.cache[key] = rates
	p.mu.Unlock()

	return rates, nil
}

func (p *CNBProvider) fetchYear(ctx context.Context, year int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?year=%d", p.apiURL, year), nil)
	if err != nil {
		return "", errors.Wrap(err, "build CNB fixing request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "fetch CNB fixing for %d", year)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("CNB feed returned status %d for year %d", resp.StatusCode, year)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrapf(err, "read CNB fixing for %d", year)
	}

	return sb.String(), nil
}

// parseYearFeed extracts one currency's column from the pipe-separated
// yearly feed. Header cells read "<amount> <code>", e.g. "1 EUR" or
// "100 JPY"; the rate is normalized to one unit.
func parseYearFeed(body, currency string) (map[string]decimal.Decimal, error) {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) < 2 {
		return nil, errors.New("CNB feed is empty")
	}

	header := strings.Split(lines[0], "|")
	column := -1
	amount := decimal.NewFromInt(1)
	for i, cell := range header {
		fields := strings.Fields(strings.TrimSpace(cell))
		if len(fields) == 2 && fields[1] == currency {
			parsed, err := decimal.NewFromString(fields[0])
			if err != nil || !parsed.IsPositive() {
				return nil, errors.Errorf("CNB feed has unusable amount in column %q", cell)
			}
			column = i
			amount = parsed
			break
		}
	}
	if column < 0 {
		return nil, errors.Errorf("CNB feed has no %s column", currency)
	}

	rates := make(map[string]decimal.Decimal, len(lines)-1)
	for _, line := range lines[1:] {
		cells := strings.Split(line, "|")
		if len(cells) <= column {
			continue
		}
		date, err := time.Parse(feedDateLayout, strings.TrimSpace(cells[0]))
		if err != nil {
			continue
		}
		value, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(cells[column]), ",", "."))
		if err != nil {
			continue
		}
		rates[date.Format("2006-01-02")] = value.Div(amount)
	}

	return rates, nil
}
