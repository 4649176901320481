// Command monitor periodically polls account assets and market quotes and
// logs what it sees. It is a read-only watchdog: it never places orders.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"wbjapi"
	"wbjapi/internal/cli"
	"wbjapi/internal/config"
	"wbjapi/internal/svc"
)

const (
	quoteInterval   = 2 * time.Minute  // market quote monitoring interval
	assetInterval   = 10 * time.Minute // account asset monitoring interval
	apiTimeout      = 15 * time.Second // timeout for individual API calls
	shutdownTimeout = 10 * time.Second // grace period for shutdown
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	configPath := flag.String("config", "etc/wbjapi.yaml", "path to the app config")
	symbolsFlag := flag.String("symbols", "7203,9984,6758", "comma separated symbols to watch")
	flag.Parse()

	log.Println("[main] Starting account monitor...")

	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] Failed to load app config: %v", err)
	}
	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		log.Fatalf("[main] No symbols to watch")
	}
	log.Printf("  - Watched symbols: %v", symbols)
	log.Printf("  - Intervals: quotes=%s, assets=%s", quoteInterval, assetInterval)

	svcCtx := svc.NewServiceContext(*appCfg)
	client := svcCtx.Client
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runQuoteMonitor(ctx, client, symbols)
	}()
	go func() {
		defer wg.Done()
		runAssetMonitor(ctx, client)
	}()

	log.Println("[main] Monitor started. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}
	log.Println("[main] Monitor stopped")
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		if sym := strings.TrimSpace(part); sym != "" {
			symbols = append(symbols, strings.ToUpper(sym))
		}
	}
	return symbols
}

func runQuoteMonitor(ctx context.Context, client *wbjapi.Client, symbols []string) {
	ticker := time.NewTicker(quoteInterval)
	defer ticker.Stop()

	monitorQuotes(ctx, client, symbols)
	for {
		select {
		case <-ctx.Done():
			log.Println("[quotes] Stopping quote monitor")
			return
		case <-ticker.C:
			monitorQuotes(ctx, client, symbols)
		}
	}
}

func runAssetMonitor(ctx context.Context, client *wbjapi.Client) {
	ticker := time.NewTicker(assetInterval)
	defer ticker.Stop()

	monitorAssets(ctx, client)
	for {
		select {
		case <-ctx.Done():
			log.Println("[assets] Stopping asset monitor")
			return
		case <-ticker.C:
			monitorAssets(ctx, client)
		}
	}
}

func monitorQuotes(parentCtx context.Context, client *wbjapi.Client, symbols []string) {
	if parentCtx.Err() != nil {
		return
	}
	for _, symbol := range symbols {
		func(sym string) {
			ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
			defer cancel()

			start := time.Now()
			quote, err := client.GetQuote(ctx, sym)
			elapsed := time.Since(start)

			if err != nil {
				log.Printf("[quote.%s] [ERROR] %v, took %dms", sym, err, elapsed.Milliseconds())
				return
			}
			if quote.Last.Sign() <= 0 {
				log.Printf("[quote.%s] [WARN] implausible last=%s, took %dms", sym, quote.Last, elapsed.Milliseconds())
				return
			}
			log.Printf("[quote.%s] [OK] last=%s %s, took %dms", sym, quote.Last, quote.Currency, elapsed.Milliseconds())
		}(symbol)
	}
}

func monitorAssets(parentCtx context.Context, client *wbjapi.Client) {
	if parentCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
	defer cancel()

	start := time.Now()
	assets, err := client.GetAssets(ctx)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("[assets] [ERROR] %v, took %dms", err, elapsed.Milliseconds())
		return
	}
	log.Printf("[assets] [OK] account=%s positions=%d, took %dms",
		assets.AccountID, len(assets.Positions), elapsed.Milliseconds())
	for _, bal := range assets.Balance.Currencies {
		log.Printf("  - %s: total=%s settled=%s buying_power=%s",
			bal.Currency, bal.TotalCash, bal.SettledCash, bal.BuyingPower)
	}
	for _, pos := range assets.Positions {
		log.Printf("  - %s: qty=%s last=%s", pos.Symbol, pos.Quantity, pos.LastPrice)
	}
}
