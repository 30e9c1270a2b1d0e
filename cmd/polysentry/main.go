package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/correlation"
	"github.com/polysentry/polysentry/internal/engine"
	httpapi "github.com/polysentry/polysentry/internal/interfaces/http"
	"github.com/polysentry/polysentry/internal/model"
	"github.com/polysentry/polysentry/internal/scan"
	"github.com/polysentry/polysentry/internal/venue/polymarket"
	"github.com/polysentry/polysentry/internal/whale"
)

const (
	appName = "polysentry"
	version = "v2.1.0"
)

var (
	configPath string
	verbose    bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Prediction-market surveillance scanner",
		Version: version,
		Long: `Polysentry scans prediction-market venues for information-asymmetry
signatures: fresh-wallet surges, minority-side whale flow, off-hours
accumulation and cross-market wallet clusters.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a full surveillance scan and print the scored markets",
		RunE:  runScan,
	}
	scanCmd.Flags().Int("limit", 0, "max markets in output")
	scanCmd.Flags().String("exchange", "", "venue filter (polymarket, kalshi, all)")
	scanCmd.Flags().String("slug", "", "scan a single market by slug")

	pulseCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Quick market-temperature pass over the top markets",
		RunE:  runPulse,
	}

	signalsCmd := &cobra.Command{
		Use:   "signals",
		Short: "Generate actionable trading signals from the scan",
		RunE:  runSignals,
	}
	signalsCmd.Flags().String("min-confidence", "", "LOW, MEDIUM or HIGH")
	signalsCmd.Flags().String("action", "", "filter to one action (BUY_YES, BUY_NO, WATCH, BOND)")
	signalsCmd.Flags().Int("max-days", 0, "drop markets resolving later than this")
	signalsCmd.Flags().Float64("min-edge", 0, "minimum fair-value edge")

	correlationsCmd := &cobra.Command{
		Use:   "correlations",
		Short: "Cluster wallets trading across multiple markets",
		RunE:  runCorrelations,
	}
	correlationsCmd.Flags().Int("window-hours", 0, "trade lookback window")
	correlationsCmd.Flags().Int("min-shared-wallets", 0, "pair threshold for clustering")
	correlationsCmd.Flags().Int("max-markets", 0, "markets to analyze")

	scorecardCmd := &cobra.Command{
		Use:   "scorecard",
		Short: "Replay the signal log against current prices",
		RunE:  runScorecard,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the surveillance API over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Tail live trades for the top markets and flag burst wallets",
		RunE:  runStream,
	}
	streamCmd.Flags().Int("markets", 20, "markets to subscribe to")

	rootCmd.AddCommand(scanCmd, pulseCmd, signalsCmd, correlationsCmd, scorecardCmd, serveCmd, streamCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setup() (*engine.Engine, *scan.Orchestrator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return eng, scan.New(eng), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, orch, err := setup()
	if err != nil {
		return err
	}
	opts := eng.Config.Scan
	if n, _ := cmd.Flags().GetInt("limit"); n > 0 {
		opts.Limit = n
	}
	if v, _ := cmd.Flags().GetString("exchange"); v != "" {
		opts.Exchange = v
	}
	if v, _ := cmd.Flags().GetString("slug"); v != "" {
		opts.Slug = v
	}

	res, err := orch.Scan(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return printJSON(res)
}

func runPulse(cmd *cobra.Command, args []string) error {
	_, orch, err := setup()
	if err != nil {
		return err
	}
	res, err := orch.Pulse(cmd.Context())
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}
	return printJSON(res)
}

func runSignals(cmd *cobra.Command, args []string) error {
	eng, orch, err := setup()
	if err != nil {
		return err
	}
	opts := eng.Config.Signals
	if v, _ := cmd.Flags().GetString("min-confidence"); v != "" {
		opts.MinConfidence = v
	}
	if v, _ := cmd.Flags().GetString("action"); v != "" {
		opts.ActionFilter = v
	}
	if n, _ := cmd.Flags().GetInt("max-days"); n > 0 {
		opts.MaxDays = n
	}
	if f, _ := cmd.Flags().GetFloat64("min-edge"); f > 0 {
		opts.MinEdge = f
	}

	res, err := orch.Signals(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("signals: %w", err)
	}
	return printJSON(res)
}

func runCorrelations(cmd *cobra.Command, args []string) error {
	_, orch, err := setup()
	if err != nil {
		return err
	}
	opts := correlation.DefaultOptions()
	if n, _ := cmd.Flags().GetInt("window-hours"); n > 0 {
		opts.WindowHours = n
	}
	if n, _ := cmd.Flags().GetInt("min-shared-wallets"); n > 0 {
		opts.MinSharedWallets = n
	}
	if n, _ := cmd.Flags().GetInt("max-markets"); n > 0 {
		opts.MaxMarkets = n
	}

	res, err := orch.Correlations(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("correlations: %w", err)
	}
	return printJSON(res)
}

func runScorecard(cmd *cobra.Command, args []string) error {
	_, orch, err := setup()
	if err != nil {
		return err
	}
	res, err := orch.Scorecard(cmd.Context())
	if err != nil {
		return fmt.Errorf("scorecard: %w", err)
	}
	return printJSON(res)
}

func runStream(cmd *cobra.Command, args []string) error {
	eng, _, err := setup()
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("markets")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var assetIDs []string
	for _, v := range eng.VenuesFor("polymarket") {
		markets, err := v.Markets(ctx, n)
		if err != nil {
			return fmt.Errorf("market list: %w", err)
		}
		for _, m := range markets {
			assetIDs = append(assetIDs, m.TokenIDs...)
		}
	}
	if len(assetIDs) == 0 {
		return fmt.Errorf("no streamable markets")
	}

	trades := make(chan model.Trade, 256)
	stream := polymarket.NewStream(eng.Config.Venues.Polymarket.StreamURL, trades)
	stream.SetAssetIDs(assetIDs)
	go stream.Run(ctx)

	bursts := whale.NewBurstTracker(60 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-trades:
			count := bursts.RecordAt(t.Wallet, time.Unix(t.Timestamp, 0))
			evt := log.Info().
				Str("wallet", t.Wallet).
				Str("outcome", t.Outcome).
				Float64("usd", t.USD())
			if count >= 3 {
				evt = evt.Int("burst_trades_60s", count)
			}
			evt.Msg("live trade")
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, _, err := setup()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		eng.Config.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(eng, eng.Config.Server)
	return srv.Start(ctx)
}
