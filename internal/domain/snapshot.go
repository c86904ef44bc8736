package domain

import "github.com/shopspring/decimal"

// PairSnapshot is the aggregated view of one pair's position and performance.
// Snapshots are derived views recomputed fresh on every run; they carry no
// persisted identity.
type PairSnapshot struct {
	Pair Pair
	// MarketPrice current price from the resolver, zero when unavailable.
	MarketPrice decimal.Decimal
	// PriceKnown false when no live or override price could be resolved.
	PriceKnown bool

	BuyVolume       decimal.Decimal
	SellVolume      decimal.Decimal
	RemainingVolume decimal.Decimal

	// BuyTotal capital deployed including buy fees.
	BuyTotal decimal.Decimal
	// SellTotal sale proceeds net of sell fees.
	SellTotal decimal.Decimal
	// Cost equals BuyTotal, kept under the reporting name.
	Cost decimal.Decimal
	// CostBasisSold portion of the cost attributable to sold volume,
	// at the average cost basis per unit.
	CostBasisSold decimal.Decimal

	CurrentValue   decimal.Decimal
	PotentialValue decimal.Decimal
	TotalValue     decimal.Decimal

	// RealizedROI percentage return on the sold portion.
	RealizedROI decimal.Decimal
	// PotentialROI percentage return if the rest were liquidated now.
	PotentialROI decimal.Decimal
}

// PairBreakdown carries the raw buy and sell legs of one pair for the
// per-pair report sheets.
type PairBreakdown struct {
	Pair        Pair
	Buys        []Trade
	Sells       []Trade
	MarketPrice decimal.Decimal
	PriceKnown  bool
}

// PortfolioSummary is one token-level rollup row, aggregated across all
// pairs sharing the token.
type PortfolioSummary struct {
	Token           string
	Pair            Pair
	TotalCost       decimal.Decimal
	RealizedSells   decimal.Decimal
	UnrealizedValue decimal.Decimal
	TotalValue      decimal.Decimal
	ROI             decimal.Decimal
	PotentialROI    decimal.Decimal
}
