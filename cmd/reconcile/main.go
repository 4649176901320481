// Command reconcile runs one reconciliation pass: it fetches the period's
// activity, cross-checks the settled entries against the expected balance
// delta and prints (and optionally persists) the resulting report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"wbjapi/internal/cli"
	"wbjapi/internal/config"
	"wbjapi/internal/svc"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime)

	configPath := flag.String("config", "etc/wbjapi.yaml", "path to the app config")
	fromFlag := flag.String("from", "", "period start, RFC3339 (default: 30 days ago)")
	toFlag := flag.String("to", "", "period end, RFC3339, exclusive (default: now)")
	currency := flag.String("currency", "JPY", "currency to reconcile")
	expected := flag.String("expected", "0", "expected balance delta for the period")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load app config: %v", err)
	}
	cli.LogConfigSummary(appCfg)

	now := time.Now().UTC()
	from, err := parseTimeFlag(*fromFlag, now.AddDate(0, 0, -30))
	if err != nil {
		log.Fatalf("invalid -from: %v", err)
	}
	to, err := parseTimeFlag(*toFlag, now)
	if err != nil {
		log.Fatalf("invalid -to: %v", err)
	}
	if !from.Before(to) {
		log.Fatalf("-from must precede -to")
	}
	expectedDelta, err := decimal.NewFromString(*expected)
	if err != nil {
		log.Fatalf("invalid -expected: %v", err)
	}

	svcCtx := svc.NewServiceContext(*appCfg)
	client := svcCtx.Client
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, hist, err := client.ReconcilePeriod(ctx, from, to, *currency, expectedDelta)
	if err != nil {
		log.Fatalf("reconciliation failed: %v", err)
	}

	log.Printf("account=%s entries=%d mapped=%d unknown=%d", hist.AccountID, len(hist.Entries), hist.Mapped, hist.Unknown)
	if hist.Warning != nil {
		log.Printf("WARNING: %v", hist.Warning)
	}
	log.Printf("expected=%s observed=%s difference=%s balanced=%v",
		report.ExpectedDelta, report.ObservedDelta, report.Difference(), report.Balanced)
	for _, d := range report.Discrepancies {
		log.Printf("discrepancy entry=%s kind=%s amount=%s: %s", d.EntryID, d.Kind, d.Amount, d.Reason)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	fmt.Println(string(out))

	if !report.Balanced {
		os.Exit(1)
	}
}

func parseTimeFlag(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
