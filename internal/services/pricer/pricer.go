// Package pricer resolves current market prices for statement pairs.
package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krakenreport/internal/domain"
)

// ErrPriceUnavailable no live or override source yielded a price for the
// pair. Non-fatal: the aggregator values the position at zero and keeps
// going.
var ErrPriceUnavailable = errors.New("price unavailable")

// Pricer supplies the current market price for a pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// Resolver resolves prices with the manual override table taking precedence
// over the live source. Overrides cover illiquid or delisted pairs the live
// source no longer quotes.
type Resolver struct {
	overrides map[string]decimal.Decimal
	live      Pricer
	logger    *zap.Logger
}

// NewResolver creates a Resolver. The live pricer may be nil, in which case
// only overrides resolve.
func NewResolver(overrides map[string]decimal.Decimal, live Pricer, logger *zap.Logger) *Resolver {
	return &Resolver{overrides: overrides, live: live, logger: logger}
}

// GetPrice returns the override price when one is configured, otherwise the
// live price. Returns ErrPriceUnavailable when neither source yields one.
func (r *Resolver) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if price, ok := r.overrides[pair.String()]; ok {
		r.logger.Debug("using manual price override",
			zap.String("pair", pair.String()),
			zap.String("price", price.String()))
		return price, nil
	}

	if r.live == nil {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "no override for %s and no live source", pair.String())
	}

	price, err := r.live.GetPrice(ctx, pair)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "no price for %s: %v", pair.String(), err)
	}
	if price.IsNegative() {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "live source returned negative price for %s", pair.String())
	}

	return price, nil
}
