package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/intelmarket"
	"github.com/hupe1980/intelmarket/config"
	"github.com/hupe1980/intelmarket/core"
	"github.com/hupe1980/intelmarket/logging"
	"github.com/hupe1980/intelmarket/mirror"
)

var demoDataDir string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an end-to-end marketplace scenario",
	Long: `Run a complete trade through an in-process marketplace: register two
agents, publish a listing, purchase it with committed reasoning, rate the
exchange and print the resulting market statistics.

Examples:
  intelmarket demo
  intelmarket demo --data-dir /tmp/intelmarket   # durable memory mirror
  intelmarket demo --config market.yaml`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringVar(&demoDataDir, "data-dir", "", "Mirror memory records to a leveldb database at this path")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level := logging.LogLevelWarn
	if verbose {
		level = logging.LogLevelDebug
	}
	logger := logging.NewSlogLogger(level, "text", false).WithContext("run", "demo")
	defer logger.StartTimer("demo")()

	opts := []func(*intelmarket.Options){
		func(o *intelmarket.Options) {
			o.Config = cfg
			o.Logger = logger
		},
	}
	if demoDataDir != "" {
		sink, err := mirror.OpenLevelDBSink(demoDataDir)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		opts = append(opts, func(o *intelmarket.Options) { o.PersistenceLocal = sink })
	}

	mkt, err := intelmarket.New(opts...)
	if err != nil {
		return err
	}
	defer mkt.Close()

	ctx := context.Background()
	if _, err := mkt.RegisterAgent(ctx, "agent-alpha", "Alpha Research", "yield strategy specialist", []string{"defi", "yield"}); err != nil {
		return fail(mkt, err)
	}
	if _, err := mkt.RegisterAgent(ctx, "agent-beta", "Beta Capital", "buys market intelligence", []string{"defi"}); err != nil {
		return fail(mkt, err)
	}

	listing, err := mkt.ListIntelligence(ctx, "agent-alpha", core.ListingSpec{
		Title:       "Stable pool yield rotation",
		Description: "Weekly rotation plan across three stable pools",
		Category:    core.CategoryDefiStrategy,
		Price:       0.5,
	})
	if err != nil {
		return fail(mkt, err)
	}
	fmt.Printf("listed %q at %.2f (quality %.0f)\n", listing.Title, listing.Price, listing.QualityScore)

	purchase, err := mkt.Purchase(ctx, "agent-beta", listing.ID, &core.Reasoning{
		Decision:      "purchase",
		Factors:       []string{"category fit", "price", "seller reputation"},
		Confidence:    80,
		ExpectedValue: 1.5,
		RiskNote:      "low risk, stable pools only",
		Methodology:   "compared against current pool APYs and recent listings",
	})
	if err != nil {
		return fail(mkt, err)
	}
	fmt.Printf("purchased in tx %s (commit %s, revealed=%v)\n", purchase.Transaction.ID, purchase.CommitID, purchase.Revealed)

	rated, err := mkt.RateIntelligence(ctx, "agent-beta", listing.ID, 5, "rotation plan worked as described")
	if err != nil {
		return fail(mkt, err)
	}
	fmt.Printf("rated 5/5: listing rating %.1f, seller reputation %d\n", rated.ListingRating, rated.SellerReputation)

	verification, err := mkt.VerifyCommit(ctx, purchase.CommitID)
	if err != nil {
		return fail(mkt, err)
	}
	fmt.Printf("commit verified=%v trust=%d\n", verification.Verified, verification.TrustScore)

	stats := mkt.MarketStats(ctx)
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// fail prints the structured failure envelope before surfacing the error.
func fail(mkt *intelmarket.Marketplace, err error) error {
	failure := mkt.Describe(err)
	fmt.Fprintf(os.Stderr, "error %s: %s (retryable=%v)\n", failure.Code, failure.Message, failure.Retryable)
	return err
}
