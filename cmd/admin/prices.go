package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"findash/internal/handler"
	"findash/internal/marketdata"
	"findash/internal/model"
	"findash/internal/repository"
	"findash/internal/router"
	"findash/internal/service"
)

var fetchPricesCmd = &cobra.Command{
	Use:   "fetch-prices <symbol>",
	Short: "Fetch daily prices from Alpha Vantage and store them",
	Long: `Fetch daily bars for a symbol and store them, exactly like
POST /stocks/fetch/{symbol}. Requires ALPHA_VANTAGE_API_KEY.

Examples:
  admin fetch-prices IBM
  admin fetch-prices MSFT --output-size full --refresh=false`,
	Args: cobra.ExactArgs(1),
	RunE: runFetchPrices,
}

var seedPricesCmd = &cobra.Command{
	Use:   "seed-prices <file-or-url>",
	Short: "Load stock prices from a JSON file or URL",
	Long: `Insert a JSON array of price entries, each shaped like the body of
POST /stocks/. The whole batch is stored in one transaction.

Examples:
  admin seed-prices ./prices.json --source Manual
  admin seed-prices https://example.com/prices.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSeedPrices,
}

func init() {
	fetchPricesCmd.Flags().String("output-size", "compact", "compact (about 100 days) or full")
	fetchPricesCmd.Flags().Bool("refresh", true, "delete previously fetched rows for the symbol first")
	seedPricesCmd.Flags().String("source", "", "data source applied to every entry")
	rootCmd.AddCommand(fetchPricesCmd, seedPricesCmd)
}

func newStockService() service.StockService {
	provider := marketdata.NewAlphaVantageClient(cfg.AlphaVantageURL, cfg.AlphaVantageKey, cfg.MarketDataTimeout, log)
	return service.NewStockService(repository.NewStockPriceRepository(gormDB), provider, log)
}

func runFetchPrices(cmd *cobra.Command, args []string) error {
	sizeFlag, _ := cmd.Flags().GetString("output-size")
	refresh, _ := cmd.Flags().GetBool("refresh")
	size, err := marketdata.ParseOutputSize(sizeFlag)
	if err != nil {
		return err
	}

	res, err := newStockService().FetchAndStore(cmd.Context(), args[0], size, refresh)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.Deleted > 0 {
		fmt.Fprintf(out, "Deleted %d previous entries for %s\n", res.Deleted, res.Symbol)
	}
	if res.Stored == 0 {
		fmt.Fprintf(out, "No data fetched from %s for symbol %s. Nothing stored.\n", res.Source, res.Symbol)
		return nil
	}
	fmt.Fprintf(out, "Stored %d data points for %s from %s\n", res.Stored, res.Symbol, res.Source)
	return nil
}

func runSeedPrices(cmd *cobra.Command, args []string) error {
	raw, err := readSeed(args[0])
	if err != nil {
		return err
	}
	var entries []handler.StockPriceRequest
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	v := router.NewValidator()
	prices := make([]model.StockPrice, 0, len(entries))
	for i := range entries {
		if err := v.Validate(&entries[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		prices = append(prices, entries[i].ToModel())
	}

	var common *string
	if source, _ := cmd.Flags().GetString("source"); source != "" {
		common = &source
	}
	stored, err := newStockService().CreateBulk(cmd.Context(), prices, common)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d price entries\n", len(stored))
	return nil
}

// readSeed loads the seed payload from an http(s) URL or a local path.
func readSeed(src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(src)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
