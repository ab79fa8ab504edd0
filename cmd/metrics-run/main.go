package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blustreamin/mci/internal/benchmark"
	"github.com/blustreamin/mci/internal/corpusstore"
	"github.com/blustreamin/mci/internal/keywordindex"
)

func main() {
	dbPath := flag.String("db", "./data/mci.db", "path to SQLite database file")
	categoryID := flag.String("category", "", "category to score")
	windowID := flag.String("window", "", "reporting window, e.g. 2026-W32")
	snapshotID := flag.String("corpus-snapshot", "", "corpus snapshot id (optional)")
	benchmarksPath := flag.String("benchmarks", "", "path to benchmarks YAML (optional)")
	trendURL := flag.String("trend-url", "", "trend oracle base URL (empty = no oracle)")
	offline := flag.Bool("offline", false, "resolve trend to the deterministic default")
	flag.Parse()

	if *categoryID == "" {
		log.Fatal("missing required -category")
	}
	if *windowID == "" {
		log.Fatal("missing required -window")
	}

	store, err := corpusstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("open sqlite store (%s): %v", *dbPath, err)
	}
	defer store.Close()

	var benchmarks keywordindex.BenchmarkSource
	if *benchmarksPath != "" {
		table, err := benchmark.Load(*benchmarksPath)
		if err != nil {
			log.Fatalf("load benchmarks: %v", err)
		}
		benchmarks = table
	}

	var oracle keywordindex.TrendOracle
	if *trendURL != "" {
		oracle = keywordindex.NewHTTPTrendOracle(*trendURL)
	}
	trends := keywordindex.NewTrendResolver(oracle, store)
	if *offline {
		trends = trends.Offline()
	}

	pipeline := keywordindex.NewPipeline(store, benchmarks, trends, store, keywordindex.DefaultConfig())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snap, err := pipeline.Compute(ctx, keywordindex.ComputeRequest{
		CategoryID:       *categoryID,
		WindowID:         *windowID,
		CorpusSnapshotID: *snapshotID,
	})
	if err != nil {
		log.Fatalf("compute metrics: %v", err)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatalf("encode snapshot: %v", err)
	}
	fmt.Println(string(out))
}
