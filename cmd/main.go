// Command krakenreport converts a Kraken PDF trade statement into an xlsx
// portfolio report with per-pair breakdowns and ROI metrics.
//
// Usage:
//
//	krakenreport --config config.yaml
//	krakenreport --pdf downloads/trades.pdf --out uploads/kraken_trade_summary.xlsx
//
// Optional environment variables:
//
//	KRAKEN_TRADES_PDF     input statement path
//	PARSED_TRADES_EXCEL   output report path
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"krakenreport/config"
	"krakenreport/internal"
)

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	builder, err := internal.NewReportBuilder(conf, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	if err := builder.Run(context.Background()); err != nil {
		logger.Fatal("report run failed", zap.Error(err))
	}
}
