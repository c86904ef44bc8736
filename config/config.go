// Package config loads pipeline configuration from a yaml file, flags and
// environment fallbacks.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"krakenreport/internal/domain"
)

const (
	defaultPDFPath        = "downloads/trades.pdf"
	defaultReportPath     = "uploads/kraken_trade_summary.xlsx"
	defaultPlatform       = "kraken"
	defaultRequestTimeout = 10 * time.Second

	envPDFPath    = "KRAKEN_TRADES_PDF"
	envReportPath = "PARSED_TRADES_EXCEL"
)

// Config is the validated pipeline configuration.
type Config struct {
	// PDFPath input trade statement.
	PDFPath string
	// ReportPath output xlsx report.
	ReportPath string
	// Platform live price source: kraken, binance or bybit.
	Platform string
	// RequestTimeout per HTTP request to market data sources.
	RequestTimeout time.Duration
	// SecondaryCurrency when set to CZK, the summary sheet carries a
	// converted column using the CNB EUR fixing.
	SecondaryCurrency string
	// PriceOverrides manual prices taking precedence over the live source.
	PriceOverrides map[string]decimal.Decimal
	// ManualTrades statement corrections appended to the parsed set.
	ManualTrades []domain.Trade
}

type configTmp struct {
	PDFPath           string            `yaml:"pdf_path,omitempty"`
	ReportPath        string            `yaml:"report_path,omitempty"`
	Platform          string            `yaml:"platform,omitempty"`
	RequestTimeout    time.Duration     `yaml:"request_timeout,omitempty"`
	SecondaryCurrency string            `yaml:"secondary_currency,omitempty"`
	PriceOverrides    map[string]string `yaml:"price_overrides,omitempty"`
	ManualTrades      []manualTradeTmp  `yaml:"manual_trades,omitempty"`
}

type manualTradeTmp struct {
	UniqueID          string `yaml:"unique_id"`
	Date              string `yaml:"date"`
	Pair              string `yaml:"pair"`
	TradeType         string `yaml:"trade_type"`
	ExecutionType     string `yaml:"execution_type"`
	TradePrice        string `yaml:"trade_price"`
	TransactionPrice  string `yaml:"transaction_price"`
	TransferredVolume string `yaml:"transferred_volume"`
	Fee               string `yaml:"fee"`
}

// Get resolves the configuration from flags, an optional yaml file and
// environment fallbacks, in that order of precedence.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	pdfPath := flag.String("pdf", "", "path to the trade statement PDF")
	reportPath := flag.String("out", "", "path for the xlsx report")
	platform := flag.String("platform", "", "live price source: kraken, binance or bybit")
	flag.Parse()

	conf := Config{
		PDFPath:        envOr(envPDFPath, defaultPDFPath),
		ReportPath:     envOr(envReportPath, defaultReportPath),
		Platform:       defaultPlatform,
		RequestTimeout: defaultRequestTimeout,
	}

	if *configPath != "" {
		var err error
		conf, err = fromYaml(*configPath, conf)
		if err != nil {
			return Config{}, err
		}
	}

	if *pdfPath != "" {
		conf.PDFPath = *pdfPath
	}
	if *reportPath != "" {
		conf.ReportPath = *reportPath
	}
	if *platform != "" {
		conf.Platform = *platform
	}

	if err := validate(conf); err != nil {
		return Config{}, err
	}

	return conf, nil
}

// FromFile loads and validates a yaml config without consulting flags.
func FromFile(path string) (Config, error) {
	conf := Config{
		PDFPath:        envOr(envPDFPath, defaultPDFPath),
		ReportPath:     envOr(envReportPath, defaultReportPath),
		Platform:       defaultPlatform,
		RequestTimeout: defaultRequestTimeout,
	}

	conf, err := fromYaml(path, conf)
	if err != nil {
		return Config{}, err
	}

	if err := validate(conf); err != nil {
		return Config{}, err
	}

	return conf, nil
}

func fromYaml(path string, conf Config) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config file")
	}

	if tmp.PDFPath != "" {
		conf.PDFPath = tmp.PDFPath
	}
	if tmp.ReportPath != "" {
		conf.ReportPath = tmp.ReportPath
	}
	if tmp.Platform != "" {
		conf.Platform = tmp.Platform
	}
	if tmp.RequestTimeout > 0 {
		conf.RequestTimeout = tmp.RequestTimeout
	}
	conf.SecondaryCurrency = tmp.SecondaryCurrency

	if len(tmp.PriceOverrides) > 0 {
		conf.PriceOverrides = make(map[string]decimal.Decimal, len(tmp.PriceOverrides))
		for pair, raw := range tmp.PriceOverrides {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return Config{}, errors.Wrapf(err, "invalid price override for %s", pair)
			}
			if _, err := domain.ParsePair(pair); err != nil {
				return Config{}, errors.Wrapf(err, "invalid price override pair %q", pair)
			}
			conf.PriceOverrides[pair] = price
		}
	}

	for _, mt := range tmp.ManualTrades {
		trade, err := mt.toTrade()
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid manual trade %q", mt.UniqueID)
		}
		conf.ManualTrades = append(conf.ManualTrades, trade)
	}

	return conf, nil
}

func (m manualTradeTmp) toTrade() (domain.Trade, error) {
	date, err := time.Parse("2006-01-02", m.Date)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "date")
	}
	pair, err := domain.ParsePair(m.Pair)
	if err != nil {
		return domain.Trade{}, err
	}
	tradeType, err := domain.ParseTradeType(m.TradeType)
	if err != nil {
		return domain.Trade{}, err
	}
	executionType, err := domain.ParseExecutionType(m.ExecutionType)
	if err != nil {
		return domain.Trade{}, err
	}

	price, err := decimal.NewFromString(m.TradePrice)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "trade_price")
	}
	transactionPrice, err := decimal.NewFromString(m.TransactionPrice)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "transaction_price")
	}
	volume, err := decimal.NewFromString(m.TransferredVolume)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "transferred_volume")
	}
	fee := decimal.Zero
	if m.Fee != "" {
		if fee, err = decimal.NewFromString(m.Fee); err != nil {
			return domain.Trade{}, errors.Wrap(err, "fee")
		}
	}

	return domain.NewTrade(m.UniqueID, date, pair, tradeType, executionType, price, transactionPrice, volume, fee)
}

func validate(conf Config) error {
	switch conf.Platform {
	case "kraken", "binance", "bybit":
	default:
		return errors.Errorf("unsupported platform %q", conf.Platform)
	}
	if conf.SecondaryCurrency != "" && conf.SecondaryCurrency != "CZK" {
		return errors.Errorf("unsupported secondary currency %q", conf.SecondaryCurrency)
	}
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
