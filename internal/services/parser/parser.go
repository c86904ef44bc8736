// Package parser turns raw statement text rows into canonical trade records.
//
// The Kraken statement prints each trade as two physical rows: the trade
// date on its own row, then the trade columns (uid, pair, type, execution,
// price, cost, volume, fee, margin) on the next. The parser merges those
// windows and applies an ordered rule set:
//
//   - rows that are not trade-shaped (headers, footers, summary rows) are
//     expected noise and skipped,
//   - rows that are trade-shaped but carry a malformed field abort the run
//     with a ParseError, since the layout is fixed and one corrupt row
//     invalidates confidence in the whole extraction,
//   - repeated unique ids keep the first occurrence and record a
//     DuplicateTrade warning (first-wins, deterministic in document order).
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krakenreport/internal/domain"
	"krakenreport/internal/services/extractor"
)

// ParseError is fatal: a trade-shaped row has a malformed field. It carries
// the offending row and its position for diagnosis.
type ParseError struct {
	Line   string
	Number int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed trade row at line %d: %s (%q)", e.Number, e.Reason, e.Line)
}

const tradeDateLayout = "2006-01-02"

var (
	// dateRow a row holding nothing but the trade date.
	dateRow = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// tradeRow the strict merged-row grammar. Numeric fields tolerate
	// thousands separators, which are stripped before conversion.
	tradeRow = regexp.MustCompile(`^(?P<date>\d{4}-\d{2}-\d{2})\s+` +
		`(?P<uid>[A-Z0-9-]+)\s+` +
		`(?P<pair>[A-Z0-9]+/[A-Z0-9]+)\s+` +
		`(?P<type>Buy|Sell)\s+` +
		`(?P<subtype>Limit|Market)\s+` +
		`(?P<price>[\d,]+\.\d+)\s+` +
		`(?P<cost>[\d,]+\.\d+)\s+` +
		`(?P<volume>[\d,]+\.\d+)\s+` +
		`(?P<fee>[\d,]+\.\d+)\s+` +
		`(?P<margin>[\d,]+\.\d+)$`)

	// tradeShape the loose grammar that recognises a row as a trade row at
	// all. A row matching this but not tradeRow is malformed, not noise.
	tradeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+[A-Z0-9-]+\s+\S+\s+(?:Buy|Sell)\b`)
)

// Parser applies the statement grammar to extracted text rows.
type Parser struct {
	logger *zap.Logger
}

// New creates a Parser.
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse converts statement rows into trades in document order. On a fatal
// ParseError no partial trade list is returned.
func (p *Parser) Parse(lines []extractor.Line) ([]domain.Trade, []domain.Warning, error) {
	var (
		trades   []domain.Trade
		warnings []domain.Warning
		seen     = make(map[string]int)
	)

	for i := 0; i+1 < len(lines); i++ {
		date := strings.TrimSpace(lines[i].Text)
		if !dateRow.MatchString(date) {
			continue
		}

		next := strings.TrimSpace(lines[i+1].Text)
		if strings.HasPrefix(next, "Page") {
			continue
		}

		merged := date + " " + next
		match := tradeRow.FindStringSubmatch(merged)
		if match == nil {
			if tradeShape.MatchString(merged) {
				return nil, nil, &ParseError{Line: merged, Number: lines[i+1].Number, Reason: "row does not match the statement column layout"}
			}
			p.logger.Debug("skipping non-trade row", zap.Int("line", lines[i+1].Number))
			i++
			continue
		}

		trade, err := p.buildTrade(match, merged, lines[i+1].Number)
		if err != nil {
			return nil, nil, err
		}

		if first, ok := seen[trade.UniqueID]; ok {
			warnings = append(warnings, domain.Warning{
				Kind:   domain.DuplicateTrade,
				Pair:   trade.Pair.String(),
				Detail: fmt.Sprintf("unique id %s at line %d repeats line %d, first occurrence kept", trade.UniqueID, lines[i+1].Number, first),
			})
			p.logger.Warn("duplicate trade id, keeping first occurrence",
				zap.String("unique_id", trade.UniqueID),
				zap.Int("line", lines[i+1].Number),
				zap.Int("first_line", first))
			i++
			continue
		}
		seen[trade.UniqueID] = lines[i+1].Number

		trades = append(trades, trade)
		i++
	}

	p.logger.Info("parsed statement", zap.Int("trades", len(trades)), zap.Int("warnings", len(warnings)))

	return trades, warnings, nil
}

func (p *Parser) buildTrade(match []string, line string, number int) (domain.Trade, error) {
	fields := make(map[string]string, len(match))
	for i, name := range tradeRow.SubexpNames() {
		if name != "" {
			fields[name] = match[i]
		}
	}

	tradeDate, err := time.Parse(tradeDateLayout, fields["date"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: "invalid trade date"}
	}

	pair, err := domain.ParsePair(fields["pair"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: err.Error()}
	}

	tradeType, err := domain.ParseTradeType(fields["type"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: err.Error()}
	}

	executionType, err := domain.ParseExecutionType(fields["subtype"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: err.Error()}
	}

	price, err := parseDecimal(fields["price"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: "non-numeric price field"}
	}
	cost, err := parseDecimal(fields["cost"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: "non-numeric cost field"}
	}
	volume, err := parseDecimal(fields["volume"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: "non-numeric volume field"}
	}
	fee, err := parseDecimal(fields["fee"])
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: "non-numeric fee field"}
	}

	// The statement's cost column is the trade total (price × volume);
	// the canonical record carries the effective unit price.
	transactionPrice := price
	if volume.IsPositive() {
		transactionPrice = cost.Div(volume)
	}

	trade, err := domain.NewTrade(fields["uid"], tradeDate, pair, tradeType, executionType, price, transactionPrice, volume, fee)
	if err != nil {
		return domain.Trade{}, &ParseError{Line: line, Number: number, Reason: err.Error()}
	}

	return trade, nil
}

// parseDecimal converts a statement numeric field with fixed-point
// semantics, normalizing whitespace and thousands separators first.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "cannot parse %q as decimal", s)
	}
	return d, nil
}
