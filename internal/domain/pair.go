// Package domain defines core data structures used throughout the report pipeline.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// PairSeparator splits the base token from the quote currency in a statement pair.
const PairSeparator = "/"

// Pair is a traded market from the statement, e.g. BTC/EUR.
type Pair struct {
	// Token base asset symbol.
	Token string
	// Currency quote asset symbol.
	Currency string
}

// ParsePair splits a statement pair string into token and currency.
func ParsePair(s string) (Pair, error) {
	token, currency, ok := strings.Cut(s, PairSeparator)
	if !ok || token == "" || currency == "" {
		return Pair{}, errors.Errorf("pair %q lacks the %q separator", s, PairSeparator)
	}

	return Pair{Token: token, Currency: currency}, nil
}

// String returns the statement representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s%s%s", p.Token, PairSeparator, p.Currency)
}

// Symbol returns the concatenated symbol representation used by exchange APIs.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.Token, p.Currency)
}
