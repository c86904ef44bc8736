package domain

import "fmt"

// WarningKind classifies non-fatal conditions accumulated during a run.
type WarningKind int

const (
	// DuplicateTrade repeated unique id in the statement, first occurrence kept.
	DuplicateTrade WarningKind = iota
	// NegativeRemainingVolume sells exceed tracked buys, display clamped to zero.
	NegativeRemainingVolume
	// PriceUnavailable no live or override price for the pair.
	PriceUnavailable
	// ZeroCostBasis division guard triggered, ROI reported as zero.
	ZeroCostBasis
)

// String returns the warning kind name.
func (k WarningKind) String() string {
	switch k {
	case DuplicateTrade:
		return "duplicate_trade"
	case NegativeRemainingVolume:
		return "negative_remaining_volume"
	case PriceUnavailable:
		return "price_unavailable"
	case ZeroCostBasis:
		return "zero_cost_basis"
	default:
		return "unknown"
	}
}

// Warning is a non-fatal condition surfaced to the report layer. Warnings
// never block completion of unaffected pairs.
type Warning struct {
	Kind   WarningKind
	Pair   string
	Detail string
}

// String returns a human-readable string representation.
func (w Warning) String() string {
	if w.Pair == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Pair, w.Detail)
}
