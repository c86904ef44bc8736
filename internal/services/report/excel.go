// Package report renders aggregation results as an xlsx workbook: a
// Portfolio summary sheet, an Asset ROI sheet and one breakdown sheet per
// pair. Styling is kept to headers and ROI sign fills.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"krakenreport/internal/domain"
	"krakenreport/internal/services/portfolio"
)

const (
	portfolioSheet = "Portfolio"
	assetROISheet  = "Asset ROI"

	positiveFill = "C6EFCE"
	negativeFill = "FFC7CE"

	columnWidth = 18
)

// FXColumn adds a converted total value column to the summary sheet.
type FXColumn struct {
	Currency string
	Rate     decimal.Decimal
}

// Writer assembles the workbook.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write renders the result to path, creating parent directories as needed.
func (w *Writer) Write(path string, result *portfolio.Result, fx *FXColumn) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report directory")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyleSet(f)
	if err != nil {
		return errors.Wrap(err, "register styles")
	}

	if err := w.writePortfolioSheet(f, styles, result, fx); err != nil {
		return err
	}
	if err := w.writeAssetROISheet(f, styles, result.Snapshots); err != nil {
		return err
	}
	for i := range result.Breakdowns {
		if err := w.writeBreakdownSheet(f, styles, result.Breakdowns[i], result.Snapshots[i]); err != nil {
			return err
		}
	}

	// excelize seeds the workbook with a default sheet we never use.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "delete default sheet")
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save workbook")
	}

	w.logger.Info("report written",
		zap.String("path", path),
		zap.Int("pairs", len(result.Snapshots)),
		zap.Int("warnings", len(result.Warnings)))

	return nil
}

type styleSet struct {
	header   int
	positive int
	negative int
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return styleSet{}, err
	}
	positive, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{positiveFill}, Pattern: 1},
	})
	if err != nil {
		return styleSet{}, err
	}
	negative, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{negativeFill}, Pattern: 1},
	})
	if err != nil {
		return styleSet{}, err
	}
	return styleSet{header: header, positive: positive, negative: negative}, nil
}

func (w *Writer) writePortfolioSheet(f *excelize.File, styles styleSet, result *portfolio.Result, fx *FXColumn) error {
	if _, err := f.NewSheet(portfolioSheet); err != nil {
		return errors.Wrap(err, "create portfolio sheet")
	}

	header := []string{"Token", "Pair", "Total Cost", "Realized Sells", "Unrealized Value", "Total Value", "ROI %", "Potential ROI %"}
	if fx != nil {
		header = append(header, fmt.Sprintf("Total Value (%s)", fx.Currency))
	}
	if err := writeRow(f, portfolioSheet, 1, toAny(header)); err != nil {
		return err
	}
	if err := styleRow(f, portfolioSheet, 1, len(header), styles.header); err != nil {
		return err
	}

	row := 2
	for _, s := range result.Summaries {
		values := []any{
			s.Token,
			s.Pair.String(),
			cellNumber(s.TotalCost),
			cellNumber(s.RealizedSells),
			cellNumber(s.UnrealizedValue),
			cellNumber(s.TotalValue),
			cellNumber(s.ROI),
			cellNumber(s.PotentialROI),
		}
		if fx != nil {
			values = append(values, cellNumber(s.TotalValue.Mul(fx.Rate)))
		}
		if err := writeRow(f, portfolioSheet, row, values); err != nil {
			return err
		}
		if err := roiFill(f, portfolioSheet, row, 7, 8, s.PotentialROI, styles); err != nil {
			return err
		}
		row++
	}

	if len(result.Warnings) > 0 {
		row++
		if err := writeRow(f, portfolioSheet, row, []any{"Warnings"}); err != nil {
			return err
		}
		if err := styleRow(f, portfolioSheet, row, 1, styles.header); err != nil {
			return err
		}
		row++
		for _, warning := range result.Warnings {
			if err := writeRow(f, portfolioSheet, row, []any{warning.String()}); err != nil {
				return err
			}
			row++
		}
	}

	return autoWidth(f, portfolioSheet, len(header))
}

func (w *Writer) writeAssetROISheet(f *excelize.File, styles styleSet, snapshots []domain.PairSnapshot) error {
	if _, err := f.NewSheet(assetROISheet); err != nil {
		return errors.Wrap(err, "create asset ROI sheet")
	}

	header := []string{"Pair", "Market Price", "Buy Volume", "Sell Volume", "Remaining Volume",
		"Buy Total", "Sell Total", "Current Value", "Total Value", "Realized ROI %", "Potential ROI %"}
	if err := writeRow(f, assetROISheet, 1, toAny(header)); err != nil {
		return err
	}
	if err := styleRow(f, assetROISheet, 1, len(header), styles.header); err != nil {
		return err
	}

	for i, s := range snapshots {
		row := i + 2
		marketPrice := any("N/A")
		if s.PriceKnown {
			marketPrice = cellNumber(s.MarketPrice)
		}
		values := []any{
			s.Pair.String(),
			marketPrice,
			cellNumber(s.BuyVolume),
			cellNumber(s.SellVolume),
			cellNumber(s.RemainingVolume),
			cellNumber(s.BuyTotal),
			cellNumber(s.SellTotal),
			cellNumber(s.CurrentValue),
			cellNumber(s.TotalValue),
			cellNumber(s.RealizedROI),
			cellNumber(s.PotentialROI),
		}
		if err := writeRow(f, assetROISheet, row, values); err != nil {
			return err
		}
		if err := roiFill(f, assetROISheet, row, 10, len(values), s.PotentialROI, styles); err != nil {
			return err
		}
	}

	return autoWidth(f, assetROISheet, len(header))
}

func (w *Writer) writeBreakdownSheet(f *excelize.File, styles styleSet, breakdown domain.PairBreakdown, snapshot domain.PairSnapshot) error {
	// Excel sheet names cannot contain the pair separator.
	sheet := breakdown.Pair.Symbol()
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "create breakdown sheet for %s", breakdown.Pair.String())
	}

	header := []string{"Unique ID", "Date", "Type", "Execution", "Trade Price", "Transaction Price", "Volume", "Fee"}

	row := 1
	writeLeg := func(title string, trades []domain.Trade) error {
		if err := writeRow(f, sheet, row, []any{title}); err != nil {
			return err
		}
		if err := styleRow(f, sheet, row, 1, styles.header); err != nil {
			return err
		}
		row++
		if err := writeRow(f, sheet, row, toAny(header)); err != nil {
			return err
		}
		if err := styleRow(f, sheet, row, len(header), styles.header); err != nil {
			return err
		}
		row++
		for _, t := range trades {
			values := []any{
				t.UniqueID,
				t.TradeDate.Format("02/01/2006"),
				t.TradeType.String(),
				t.ExecutionType.String(),
				cellNumber(t.TradePrice),
				cellNumber(t.TransactionPrice),
				cellNumber(t.TransferredVolume),
				cellNumber(t.Fee),
			}
			if err := writeRow(f, sheet, row, values); err != nil {
				return err
			}
			row++
		}
		row++
		return nil
	}

	if err := writeLeg("Buys", breakdown.Buys); err != nil {
		return err
	}
	if err := writeLeg("Sells", breakdown.Sells); err != nil {
		return err
	}

	currency := breakdown.Pair.Currency
	token := breakdown.Pair.Token
	marketPrice := "N/A " + currency
	currentValue := "N/A " + currency
	if breakdown.PriceKnown {
		marketPrice = fmt.Sprintf("%s %s", snapshot.MarketPrice.String(), currency)
		currentValue = fmt.Sprintf("%s %s", snapshot.CurrentValue.String(), currency)
	}

	summaryRows := [][]any{
		{"ALREADY SOLD:", fmt.Sprintf("%s %s", snapshot.SellVolume.String(), token), fmt.Sprintf("%s %s", snapshot.SellTotal.String(), currency)},
		{"IF REST SOLD NOW:", fmt.Sprintf("%s %s", snapshot.RemainingVolume.String(), token), currentValue},
		{"MARKET PRICE:", marketPrice},
		{"TOTAL VALUE:", fmt.Sprintf("%s %s", snapshot.TotalValue.String(), currency)},
	}
	for _, values := range summaryRows {
		if err := writeRow(f, sheet, row, values); err != nil {
			return err
		}
		if err := styleRow(f, sheet, row, 1, styles.header); err != nil {
			return err
		}
		row++
	}

	return autoWidth(f, sheet, len(header))
}

// cellNumber writes decimals as numbers so spreadsheet formulas work on
// them. The 8/4 digit rounding already happened in the aggregator.
func cellNumber(d decimal.Decimal) any {
	v, _ := d.Float64()
	return v
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return errors.Wrapf(err, "write %s!%s", sheet, cell)
		}
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}

// roiFill colors the ROI cells green or red by sign.
func roiFill(f *excelize.File, sheet string, row, fromCol, toCol int, roi decimal.Decimal, styles styleSet) error {
	style := styles.positive
	if roi.IsNegative() {
		style = styles.negative
	}
	start, err := excelize.CoordinatesToCellName(fromCol, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(toCol, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}

func autoWidth(f *excelize.File, sheet string, cols int) error {
	start, err := excelize.ColumnNumberToName(1)
	if err != nil {
		return err
	}
	end, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, start, end, columnWidth)
}
