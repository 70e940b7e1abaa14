package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dhkim-dev/priceboard/internal/clients/googlefin"
	"github.com/dhkim-dev/priceboard/internal/clients/naver"
	"github.com/dhkim-dev/priceboard/internal/clients/yahoo"
	"github.com/dhkim-dev/priceboard/internal/common"
	"github.com/dhkim-dev/priceboard/internal/interfaces"
	"github.com/dhkim-dev/priceboard/internal/market"
	"github.com/dhkim-dev/priceboard/internal/services/aggregator"
	"github.com/dhkim-dev/priceboard/internal/sources"
	"github.com/dhkim-dev/priceboard/internal/tickers"
)

func main() {
	configPath := flag.String("config", os.Getenv("PRICEBOARD_CONFIG"), "path to priceboard.toml")
	tickersPath := flag.String("tickers", "", "path to ticker CSV (overrides config)")
	refDateArg := flag.String("date", "", "reference date YYYY-MM-DD (defaults to now)")
	asJSON := flag.Bool("json", false, "emit reports as JSON")
	flag.Parse()

	config, err := common.LoadConfig(*configPath, "priceboard.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(config.Logging.Level)

	// An absent or unparseable reference date falls back to now.
	var refDate time.Time
	if *refDateArg != "" {
		refDate, err = time.Parse("2006-01-02", *refDateArg)
		if err != nil {
			logger.Warn().Str("date", *refDateArg).Msg("Unparseable reference date, using now")
			refDate = time.Time{}
		}
	}

	path := config.Tickers.Path
	if *tickersPath != "" {
		path = *tickersPath
	}
	list, err := tickers.Load(path, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load tickers")
	}
	if len(list) == 0 {
		logger.Fatal().Str("path", path).Msg("No usable tickers in config")
	}

	var googleClient interfaces.PriceSource
	if config.Clients.Google.GatewayURL != "" {
		googleClient = googlefin.NewClient(config.Clients.Google.GatewayURL,
			googlefin.WithAPIKey(config.Clients.Google.APIKey),
			googlefin.WithLogger(logger),
			googlefin.WithRateLimit(config.Clients.Google.RateLimit),
			googlefin.WithTimeout(config.Clients.Google.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Formula gateway not configured - google-sourced tickers fall back to yahoo")
	}

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	naverClient := naver.NewClient(
		naver.WithBaseURL(config.Clients.Naver.BaseURL),
		naver.WithMobileBaseURL(config.Clients.Naver.MobileBaseURL),
		naver.WithLogger(logger),
		naver.WithRateLimit(config.Clients.Naver.RateLimit),
		naver.WithTimeout(config.Clients.Naver.GetTimeout()),
	)

	router := sources.NewRouter(googleClient, yahooClient, naverClient, logger)
	calendar := market.NewCalendar(logger)
	svc := aggregator.NewService(router, calendar, logger, config.Aggregator.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports := svc.ResolveAll(ctx, list, refDate)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			logger.Fatal().Err(err).Msg("Failed to encode reports")
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSYMBOL\tSOURCE\tPRICE\tWEEKLY\tMONTHLY\tYTD\tVS 52W HIGH\tEST")
	for _, r := range reports {
		est := ""
		if r.Estimated() {
			est = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Ticker.Name, r.Ticker.Symbol, r.Ticker.Source,
			r.Current.Value, r.WeeklyReturn, r.MonthlyReturn, r.YTDReturn, r.HighReturn, est)
	}
	w.Flush()
}
