// Package portfolio folds parsed trades and current market prices into
// per-pair snapshots and token-level summary rows.
package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krakenreport/internal/domain"
	"krakenreport/internal/services/pricer"
)

const (
	// volumePrecision fractional digits kept for volumes and monetary values.
	volumePrecision = 8
	// roiPrecision fractional digits kept for percentage ROI fields.
	roiPrecision = 4
)

var hundred = decimal.NewFromInt(100)

// Result is the derived output of one aggregation run. It holds no
// persisted identity; every run recomputes it from the full trade set.
type Result struct {
	Snapshots  []domain.PairSnapshot
	Breakdowns []domain.PairBreakdown
	Summaries  []domain.PortfolioSummary
	Warnings   []domain.Warning
}

// Aggregator computes portfolio metrics. The accumulator state is built
// fresh inside every Aggregate call, so one Aggregator is safe to reuse.
type Aggregator struct {
	prices pricer.Pricer
	logger *zap.Logger
}

// New creates an Aggregator that values unrealized positions through the
// given price source.
func New(prices pricer.Pricer, logger *zap.Logger) *Aggregator {
	return &Aggregator{prices: prices, logger: logger}
}

// Aggregate folds the trade set, grouped by pair in chronological order,
// into snapshots and summaries. A missing market price degrades that pair
// to zero unrealized value with a warning; it never blocks sibling pairs.
func (a *Aggregator) Aggregate(ctx context.Context, trades []domain.Trade) (*Result, error) {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TradeDate.Equal(sorted[j].TradeDate) {
			return sorted[i].TradeDate.Before(sorted[j].TradeDate)
		}
		return sorted[i].UniqueID < sorted[j].UniqueID
	})

	var pairOrder []domain.Pair
	byPair := make(map[domain.Pair][]domain.Trade)
	for _, trade := range sorted {
		if _, ok := byPair[trade.Pair]; !ok {
			pairOrder = append(pairOrder, trade.Pair)
		}
		byPair[trade.Pair] = append(byPair[trade.Pair], trade)
	}

	result := &Result{}
	for _, pair := range pairOrder {
		snapshot, breakdown, warnings := a.aggregatePair(ctx, pair, byPair[pair])
		result.Snapshots = append(result.Snapshots, snapshot)
		result.Breakdowns = append(result.Breakdowns, breakdown)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Summaries = a.rollupTokens(result.Snapshots)

	a.logger.Info("aggregated portfolio",
		zap.Int("pairs", len(result.Snapshots)),
		zap.Int("tokens", len(result.Summaries)),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}

func (a *Aggregator) aggregatePair(ctx context.Context, pair domain.Pair, trades []domain.Trade) (domain.PairSnapshot, domain.PairBreakdown, []domain.Warning) {
	var warnings []domain.Warning

	var buys, sells []domain.Trade
	buyVolume, buyTotal := decimal.Zero, decimal.Zero
	sellVolume, sellTotal := decimal.Zero, decimal.Zero

	for _, trade := range trades {
		notional := trade.TransactionPrice.Mul(trade.TransferredVolume)
		switch trade.TradeType {
		case domain.Buy:
			buys = append(buys, trade)
			buyVolume = buyVolume.Add(trade.TransferredVolume)
			buyTotal = buyTotal.Add(notional).Add(trade.Fee)
		case domain.Sell:
			sells = append(sells, trade)
			sellVolume = sellVolume.Add(trade.TransferredVolume)
			sellTotal = sellTotal.Add(notional).Sub(trade.Fee)
		}
	}

	remaining := buyVolume.Sub(sellVolume)
	if remaining.IsNegative() {
		warnings = append(warnings, domain.Warning{
			Kind:   domain.NegativeRemainingVolume,
			Pair:   pair.String(),
			Detail: fmt.Sprintf("sells exceed tracked buys by %s, likely missing historical buy rows", remaining.Neg().String()),
		})
		a.logger.Warn("negative remaining volume, clamping to zero",
			zap.String("pair", pair.String()),
			zap.String("remaining", remaining.String()))
		remaining = decimal.Zero
	}

	// Average cost basis per unit and the sold portion's share of it.
	costBasisSold := decimal.Zero
	if buyVolume.IsPositive() {
		costBasisSold = sellVolume.Mul(buyTotal.Div(buyVolume))
	}

	realizedROI := decimal.Zero
	switch {
	case sellVolume.IsZero():
		// nothing sold, nothing realized
	case costBasisSold.IsPositive():
		realizedROI = sellTotal.Div(costBasisSold).Sub(decimal.NewFromInt(1)).Mul(hundred)
	default:
		warnings = append(warnings, domain.Warning{
			Kind:   domain.ZeroCostBasis,
			Pair:   pair.String(),
			Detail: "sold volume has no tracked cost basis, realized ROI reported as zero",
		})
	}

	marketPrice, priceKnown := decimal.Zero, true
	price, err := a.prices.GetPrice(ctx, pair)
	if err != nil {
		priceKnown = false
		warnings = append(warnings, domain.Warning{
			Kind:   domain.PriceUnavailable,
			Pair:   pair.String(),
			Detail: err.Error(),
		})
		a.logger.Warn("market price unavailable, valuing unrealized position at zero",
			zap.String("pair", pair.String()),
			zap.Error(err))
	} else {
		marketPrice = price
	}

	currentValue := remaining.Mul(marketPrice)
	totalValue := sellTotal.Add(currentValue)

	potentialROI := decimal.Zero
	if buyTotal.IsPositive() {
		potentialROI = totalValue.Div(buyTotal).Sub(decimal.NewFromInt(1)).Mul(hundred)
	}

	snapshot := domain.PairSnapshot{
		Pair:            pair,
		MarketPrice:     marketPrice,
		PriceKnown:      priceKnown,
		BuyVolume:       buyVolume.Round(volumePrecision),
		SellVolume:      sellVolume.Round(volumePrecision),
		RemainingVolume: remaining.Round(volumePrecision),
		BuyTotal:        buyTotal.Round(volumePrecision),
		SellTotal:       sellTotal.Round(volumePrecision),
		Cost:            buyTotal.Round(volumePrecision),
		CostBasisSold:   costBasisSold.Round(volumePrecision),
		CurrentValue:    currentValue.Round(volumePrecision),
		PotentialValue:  currentValue.Round(volumePrecision),
		TotalValue:      totalValue.Round(volumePrecision),
		RealizedROI:     realizedROI.Round(roiPrecision),
		PotentialROI:    potentialROI.Round(roiPrecision),
	}

	breakdown := domain.PairBreakdown{
		Pair:        pair,
		Buys:        buys,
		Sells:       sells,
		MarketPrice: marketPrice,
		PriceKnown:  priceKnown,
	}

	return snapshot, breakdown, warnings
}

// rollupTokens sums pair snapshots by token and recomputes the ROI fields
// from the summed values with the same formulas.
func (a *Aggregator) rollupTokens(snapshots []domain.PairSnapshot) []domain.PortfolioSummary {
	type tokenAcc struct {
		pair          domain.Pair
		cost          decimal.Decimal
		sells         decimal.Decimal
		unrealized    decimal.Decimal
		totalValue    decimal.Decimal
		costBasisSold decimal.Decimal
	}

	var order []string
	acc := make(map[string]*tokenAcc)
	for _, s := range snapshots {
		entry, ok := acc[s.Pair.Token]
		if !ok {
			entry = &tokenAcc{pair: s.Pair}
			acc[s.Pair.Token] = entry
			order = append(order, s.Pair.Token)
		}
		entry.cost = entry.cost.Add(s.Cost)
		entry.sells = entry.sells.Add(s.SellTotal)
		entry.unrealized = entry.unrealized.Add(s.CurrentValue)
		entry.totalValue = entry.totalValue.Add(s.TotalValue)
		entry.costBasisSold = entry.costBasisSold.Add(s.CostBasisSold)
	}

	summaries := make([]domain.PortfolioSummary, 0, len(order))
	for _, token := range order {
		entry := acc[token]

		roi := decimal.Zero
		if entry.costBasisSold.IsPositive() {
			roi = entry.sells.Div(entry.costBasisSold).Sub(decimal.NewFromInt(1)).Mul(hundred)
		}
		potentialROI := decimal.Zero
		if entry.cost.IsPositive() {
			potentialROI = entry.totalValue.Div(entry.cost).Sub(decimal.NewFromInt(1)).Mul(hundred)
		}

		summaries = append(summaries, domain.PortfolioSummary{
			Token:           token,
			Pair:            entry.pair,
			TotalCost:       entry.cost,
			RealizedSells:   entry.sells,
			UnrealizedValue: entry.unrealized,
			TotalValue:      entry.totalValue,
			ROI:             roi.Round(roiPrecision),
			PotentialROI:    potentialROI.Round(roiPrecision),
		})
	}

	return summaries
}
