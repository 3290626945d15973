package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pricesight/internal/config"
	"pricesight/internal/decision"
	"pricesight/internal/ebay"
	"pricesight/internal/fetch"
	"pricesight/internal/intl"
	"pricesight/internal/logger"
	"pricesight/internal/models"
	"pricesight/internal/pricecharting"
	"pricesight/internal/research"
	"pricesight/internal/scrape"
	"pricesight/internal/storage"
	"pricesight/internal/telegram"
)

var (
	configPath    = flag.String("config", "configs/config.yaml", "Path to configuration file")
	query         = flag.String("query", "", "Product to research (required)")
	brand         = flag.String("brand", "", "Brand hint for the search query")
	model         = flag.String("model", "", "Model hint for the search query")
	international = flag.Bool("international", false, "Also sample international markets")
	sellPrice     = flag.Float64("sell-price", 0, "Domestic sell price for import economics")
	buyPrice      = flag.Float64("buy-price", 0, "Domestic buy price for export economics")
	decisionPath  = flag.String("decision", "", "Path to a model reply to validate ('-' for stdin)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	if *query == "" {
		flag.Usage()
		log.Fatal("-query is required")
	}

	store, err := storage.New(cfg.Storage.MaxRuns, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	var fetcher fetch.Fetcher
	switch cfg.Scraper.Mode {
	case "chrome":
		fetcher = fetch.NewChromeFetcher("", cfg.Scraper.Timeout)
		logger.Info("Using headless browser fetcher")
	default:
		fetcher = fetch.NewProxyFetcher(cfg.Scraper.APIKey, cfg.Scraper.BaseURL, cfg.Scraper.Timeout)
	}

	ebayClient := ebay.NewClient(ebay.Config{
		AuthURL:       cfg.Ebay.AuthURL,
		BrowseURL:     cfg.Ebay.BrowseURL,
		ClientID:      cfg.Ebay.ClientID,
		ClientSecret:  cfg.Ebay.ClientSecret,
		MarketplaceID: cfg.Ebay.MarketplaceID,
		Scope:         cfg.Ebay.Scope,
		Timeout:       cfg.Ebay.Timeout,
	})

	researcher := research.New(research.Deps{
		API:     ebayClient,
		Active:  scrape.NewActiveAdapter(fetcher),
		Sold:    scrape.NewSoldAdapter(fetcher),
		Amazon:  scrape.NewAmazonAdapter(fetcher),
		Google:  scrape.NewGoogleShoppingAdapter(fetcher),
		Catalog: pricecharting.New(fetcher),
		Intl:    intl.NewComparator(fetcher),
	}, research.Options{
		SourceTimeout: cfg.Research.SourceTimeout,
		Timeout:       cfg.Research.Timeout,
		Countries:     cfg.Research.Countries,
	})

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cancelling research")
		cancel()
	}()

	started := time.Now()
	result := researcher.Research(ctx, *query, *brand, *model)

	if *international {
		result.International = researcher.ResearchInternational(ctx, *query)
	}

	fmt.Println(research.PromptContext(result))

	run, err := store.SaveRun(result, started, time.Since(started))
	if err != nil {
		logger.Error("Failed to archive run: %v", err)
	} else {
		logger.Info("Run archived as %s (%d observations)", run.ID, run.Observations)
	}

	if *international && result.International != nil {
		reportArbitrage(result.International, telegramClient)
	}

	if *decisionPath != "" {
		if err := validateDecision(*decisionPath, telegramClient); err != nil {
			logger.Fatal("Failed to validate decision: %v", err)
		}
	}
}

// reportArbitrage prints import/export economics for the sampled markets and
// forwards profitable ones to Telegram.
func reportArbitrage(cmp *models.InternationalComparison, telegramClient *telegram.Client) {
	if *sellPrice > 0 {
		if opp := intl.ImportOpportunity(cmp, *sellPrice); opp != nil {
			printOpportunity(opp)
			notifyArbitrage(cmp.Query, opp, telegramClient)
		}
	}
	if *buyPrice > 0 {
		if opp := intl.ExportOpportunity(cmp, *buyPrice); opp != nil {
			printOpportunity(opp)
			notifyArbitrage(cmp.Query, opp, telegramClient)
		}
	}
}

func printOpportunity(opp *models.ArbitrageOpportunity) {
	verdict := "not profitable"
	if opp.Profitable {
		verdict = "PROFITABLE"
	}
	fmt.Printf("\n%s: %s -> %s, margin €%.0f (%.1f%%) — %s\n",
		opp.Direction, opp.SourceCountry, opp.TargetCountry, opp.Margin, opp.MarginPct, verdict)
}

func notifyArbitrage(query string, opp *models.ArbitrageOpportunity, telegramClient *telegram.Client) {
	if telegramClient == nil || !opp.Profitable {
		return
	}
	if err := telegramClient.SendArbitrage(query, opp); err != nil {
		logger.Warn("Failed to send arbitrage notification: %v", err)
	}
}

// validateDecision parses a model reply from a file (or stdin), prints the
// bounded payload, and forwards BUY recommendations to Telegram.
func validateDecision(path string, telegramClient *telegram.Client) error {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read model reply: %w", err)
	}

	payload := decision.Parse(string(raw))
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render payload: %w", err)
	}
	fmt.Println(string(out))

	if payload.Recommendation == models.RecommendBuy && telegramClient != nil {
		listing := decision.Listing{Title: *query, Price: *buyPrice}
		if err := telegramClient.SendOpportunity(listing, &payload, ""); err != nil {
			logger.Warn("Failed to send opportunity notification: %v", err)
		}
	}
	return nil
}
