// Package internal wires the statement-to-report pipeline together.
package internal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"krakenreport/config"
	"krakenreport/internal/domain"
	"krakenreport/internal/services/extractor"
	"krakenreport/internal/services/parser"
	"krakenreport/internal/services/portfolio"
	"krakenreport/internal/services/pricer"
	"krakenreport/internal/services/rates"
	"krakenreport/internal/services/report"
)

// ReportBuilder runs one statement through the pipeline: PDF text →
// trades → snapshots/summaries → xlsx. Each invocation is independent and
// idempotent given the same PDF and market prices.
type ReportBuilder struct {
	conf       config.Config
	extractor  *extractor.Extractor
	parser     *parser.Parser
	aggregator *portfolio.Aggregator
	writer     *report.Writer
	rates      *rates.CNBProvider
	logger     *zap.Logger
}

// NewReportBuilder creates the pipeline from configuration.
func NewReportBuilder(conf config.Config, logger *zap.Logger) (*ReportBuilder, error) {
	live, err := NewPricer(conf.Platform, conf.RequestTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "create live pricer")
	}
	resolver := pricer.NewResolver(conf.PriceOverrides, live, logger)

	return &ReportBuilder{
		conf:       conf,
		extractor:  extractor.New(logger),
		parser:     parser.New(logger),
		aggregator: portfolio.New(resolver, logger),
		writer:     report.NewWriter(logger),
		rates:      rates.NewCNBProvider(conf.RequestTimeout, logger),
		logger:     logger,
	}, nil
}

// Run executes the pipeline once. Fatal extraction and parse errors abort
// the run; per-pair conditions accumulate as warnings on the report.
func (b *ReportBuilder) Run(ctx context.Context) error {
	logger := b.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("starting report run", zap.String("pdf", b.conf.PDFPath))

	result, err := b.Build(ctx)
	if err != nil {
		return err
	}

	fx := b.fxColumn(ctx, logger)
	if err := b.writer.Write(b.conf.ReportPath, result, fx); err != nil {
		return errors.Wrap(err, "write report")
	}

	logger.Info("report run finished",
		zap.String("report", b.conf.ReportPath),
		zap.Int("warnings", len(result.Warnings)))

	return nil
}

// Build produces the derived result without writing the report.
func (b *ReportBuilder) Build(ctx context.Context) (*portfolio.Result, error) {
	lines, err := b.extractor.Lines(b.conf.PDFPath)
	if err != nil {
		return nil, err
	}

	trades, warnings, err := b.parser.Parse(lines)
	if err != nil {
		return nil, err
	}

	trades, warnings = b.applyManualTrades(trades, warnings)

	result, err := b.aggregator.Aggregate(ctx, trades)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(warnings, result.Warnings...)

	return result, nil
}

// applyManualTrades appends configured statement corrections, keeping the
// parsed occurrence when a manual trade reuses an existing unique id.
func (b *ReportBuilder) applyManualTrades(trades []domain.Trade, warnings []domain.Warning) ([]domain.Trade, []domain.Warning) {
	if len(b.conf.ManualTrades) == 0 {
		return trades, warnings
	}

	seen := make(map[string]struct{}, len(trades))
	for _, trade := range trades {
		seen[trade.UniqueID] = struct{}{}
	}

	for _, manual := range b.conf.ManualTrades {
		if _, ok := seen[manual.UniqueID]; ok {
			warnings = append(warnings, domain.Warning{
				Kind:   domain.DuplicateTrade,
				Pair:   manual.Pair.String(),
				Detail: "manual trade " + manual.UniqueID + " duplicates a parsed trade, parsed occurrence kept",
			})
			continue
		}
		seen[manual.UniqueID] = struct{}{}
		trades = append(trades, manual)
		b.logger.Info("injected manual trade", zap.String("unique_id", manual.UniqueID), zap.String("pair", manual.Pair.String()))
	}

	return trades, warnings
}

// fxColumn resolves the optional secondary-currency column. Failure
// degrades to no column, never a run abort.
func (b *ReportBuilder) fxColumn(ctx context.Context, logger *zap.Logger) *report.FXColumn {
	if b.conf.SecondaryCurrency == "" {
		return nil
	}

	rate, err := b.rates.Rate(ctx, "EUR", time.Now())
	if err != nil {
		logger.Warn("secondary currency rate unavailable, omitting column",
			zap.String("currency", b.conf.SecondaryCurrency),
			zap.Error(err))
		return nil
	}

	return &report.FXColumn{Currency: b.conf.SecondaryCurrency, Rate: rate}
}
