package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TradeType represents the direction of an executed trade.
type TradeType int

const (
	// Buy base token acquired for quote currency.
	Buy TradeType = iota
	// Sell base token sold for quote currency.
	Sell
)

// String returns the statement spelling of the trade type.
func (t TradeType) String() string {
	if t == Sell {
		return "Sell"
	}
	return "Buy"
}

// ParseTradeType converts the statement spelling into a TradeType.
func ParseTradeType(s string) (TradeType, error) {
	switch s {
	case "Buy":
		return Buy, nil
	case "Sell":
		return Sell, nil
	default:
		return Buy, errors.Errorf("unknown trade type %q", s)
	}
}

// ExecutionType represents how the order was executed.
type ExecutionType int

const (
	// Limit order executed at a limit price.
	Limit ExecutionType = iota
	// Market order executed at market price.
	Market
)

// String returns the statement spelling of the execution type.
func (e ExecutionType) String() string {
	if e == Market {
		return "Market"
	}
	return "Limit"
}

// ParseExecutionType converts the statement spelling into an ExecutionType.
func ParseExecutionType(s string) (ExecutionType, error) {
	switch s {
	case "Limit":
		return Limit, nil
	case "Market":
		return Market, nil
	default:
		return Limit, errors.Errorf("unknown execution type %q", s)
	}
}

// Trade is one executed trade line from the statement. Trades are created
// once at parse time and never mutated afterwards.
type Trade struct {
	UniqueID      string
	TradeDate     time.Time
	Pair          Pair
	TradeType     TradeType
	ExecutionType ExecutionType
	// TradePrice quoted unit price.
	TradePrice decimal.Decimal
	// TransactionPrice effective price after in-statement adjustment.
	TransactionPrice decimal.Decimal
	// TransferredVolume quantity of the base token transferred.
	TransferredVolume decimal.Decimal
	// Fee charged in the quote currency.
	Fee decimal.Decimal
}

// NewTrade validates field invariants before the record enters the pipeline.
func NewTrade(uniqueID string, tradeDate time.Time, pair Pair, tradeType TradeType,
	executionType ExecutionType, tradePrice, transactionPrice, transferredVolume, fee decimal.Decimal) (Trade, error) {
	if uniqueID == "" {
		return Trade{}, errors.New("trade unique id must not be empty")
	}
	if tradePrice.IsNegative() {
		return Trade{}, errors.Errorf("trade %s: trade price must not be negative", uniqueID)
	}
	if transactionPrice.IsNegative() {
		return Trade{}, errors.Errorf("trade %s: transaction price must not be negative", uniqueID)
	}
	if transferredVolume.IsNegative() {
		return Trade{}, errors.Errorf("trade %s: transferred volume must not be negative", uniqueID)
	}
	if fee.IsNegative() {
		return Trade{}, errors.Errorf("trade %s: fee must not be negative", uniqueID)
	}

	return Trade{
		UniqueID:          uniqueID,
		TradeDate:         tradeDate,
		Pair:              pair,
		TradeType:         tradeType,
		ExecutionType:     executionType,
		TradePrice:        tradePrice,
		TransactionPrice:  transactionPrice,
		TransferredVolume: transferredVolume,
		Fee:               fee,
	}, nil
}

// String returns a human-readable string representation.
func (t *Trade) String() string {
	return fmt.Sprintf("%s %s %s volume: %s price: %s",
		t.UniqueID, t.Pair.String(), t.TradeType.String(), t.TransferredVolume.String(), t.TransactionPrice.String())
}
