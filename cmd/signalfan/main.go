package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/commission"
	"github.com/openquant-labs/signalfan/internal/engine"
	"github.com/openquant-labs/signalfan/internal/exchange"
	"github.com/openquant-labs/signalfan/internal/execution"
	"github.com/openquant-labs/signalfan/internal/hub"
	"github.com/openquant-labs/signalfan/internal/listener"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/runner"
	"github.com/openquant-labs/signalfan/internal/store"
	"github.com/openquant-labs/signalfan/internal/stream"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/marketdata"
	"github.com/openquant-labs/signalfan/pkg/marketdata/provider"
)

// runAction wires the full pipeline: store, engine, hub, runner, one
// listener and monitor loop per subscriber, and the stream server.
func runAction(ctx context.Context, cmd *cli.Command) error {
	appConfig, err := LoadAppConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	persistence, err := store.NewDuckDBStore(appConfig.DatabasePath, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer persistence.Close()

	strategyConfig := engine.LoadConfig(ctx, persistence, appLogger)

	analysisEngine, err := engine.New(strategyConfig, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create signal engine: %w", err)
	}

	signalHub := hub.New(appLogger)
	defer signalHub.Close()

	candleSource, err := provider.NewCandleProvider(provider.ProviderBinance, nil)
	if err != nil {
		return fmt.Errorf("failed to create candle provider: %w", err)
	}

	venue := exchange.NewBinanceExchange(exchange.BinanceConfig{
		ApiKey:    os.Getenv("BINANCE_API_KEY"),
		SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
	}, appConfig.Testnet)

	streamServer := stream.NewServer(signalHub, appLogger)
	if err := streamServer.Start(appConfig.Listen); err != nil {
		return fmt.Errorf("failed to start stream server: %w", err)
	}
	defer func() { _ = streamServer.Stop() }()

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup

	for _, subscriber := range appConfig.Subscribers {
		fee := commission.NewZeroPerformanceFee()
		if subscriber.PerformanceFeePct > 0 {
			fee = commission.NewPercentagePerformanceFee(subscriber.PerformanceFeePct)
		}

		bot := execution.NewEngine(subscriber.Settings, venue, persistence, fee, appLogger)
		botListener := listener.NewListener(
			subscriber.Settings, signalHub, bot, venue, persistence, appLogger,
			listener.WithDenySymbols(subscriber.DenySymbols...),
		)

		wg.Add(2)

		go func() {
			defer wg.Done()
			botListener.Run(runCtx)
		}()

		go func() {
			defer wg.Done()
			bot.MonitorLoop(runCtx)
		}()
	}

	signalRunner := runner.New(analysisEngine, signalHub, candleSource, appLogger)

	wg.Add(1)

	go func() {
		defer wg.Done()
		signalRunner.Run(runCtx)
	}()

	appLogger.Info("signalfan running",
		zap.String("listen", streamServer.Address()),
		zap.Int("subscribers", len(appConfig.Subscribers)),
		zap.Strings("symbols", strategyConfig.Symbols))

	<-runCtx.Done()

	appLogger.Info("shutting down")
	wg.Wait()

	return nil
}

// backfillAction downloads historical candles into a Parquet file.
func backfillAction(ctx context.Context, cmd *cli.Command) error {
	clientConfig := marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		DataPath:      cmd.String("data"),
		PolygonApiKey: os.Getenv("POLYGON_API_KEY"),
	}

	client, err := marketdata.NewClient(clientConfig)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	params := marketdata.BackfillParams{
		Symbol:    cmd.String("symbol"),
		Timeframe: types.Timeframe(cmd.String("timeframe")),
		StartDate: cmd.Timestamp("start"),
		EndDate:   cmd.Timestamp("end"),
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(fmt.Sprintf("Backfilling %s", params.Symbol)),
		progressbar.OptionShowCount())

	path, count, err := client.Backfill(ctx, params, func(current, total float64, _ string) {
		if total > 0 {
			_ = bar.Set(int(current / total * 100))
		}
	})
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	_ = bar.Finish()
	fmt.Printf("\nWrote %d candles to %s\n", count, path)

	return nil
}

// schemaAction prints the JSON schema of the strategy configuration.
func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := engine.ConfigJSONSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "signalfan",
		Usage: "Multi-timeframe trading signal pipeline",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the signal engine, hub, subscribers and stream server",
				Action: runAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML application config",
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Download historical candles to Parquet",
				Action: backfillAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"s"},
						Usage:    "Trading symbol (e.g. BTCUSDT)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "timeframe",
						Usage: "Candle timeframe (1m, 3m, 5m)",
						Value: "1m",
					},
					&cli.TimestampFlag{
						Name:     "start",
						Usage:    "Start date in `YYYY-MM-DD` format",
						Required: true,
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "End date in `YYYY-MM-DD` format. Defaults to today.",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Data provider (%s, %s)", provider.ProviderBinance, provider.ProviderPolygon),
						Value:   string(provider.ProviderBinance),
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "Output directory for Parquet files",
						Value: "./data",
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Print the strategy config JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
