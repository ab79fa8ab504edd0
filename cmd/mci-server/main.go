package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/blustreamin/mci/internal/benchmark"
	"github.com/blustreamin/mci/internal/corpusstore"
	"github.com/blustreamin/mci/internal/httpapi"
	"github.com/blustreamin/mci/internal/keywordindex"
)

func main() {
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	benchmarksPath := flag.String("benchmarks", "", "path to benchmarks YAML (optional)")
	trendURL := flag.String("trend-url", "", "trend oracle base URL (empty = no oracle)")
	offline := flag.Bool("offline", false, "resolve all trends to the deterministic default")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/mci.db"
	}
	store, err := corpusstore.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open sqlite store (%s): %v", dbPath, err)
	}
	defer store.Close()
	log.Printf("using sqlite store at %s", dbPath)

	var benchmarks keywordindex.BenchmarkSource
	if *benchmarksPath != "" {
		table, err := benchmark.Load(*benchmarksPath)
		if err != nil {
			log.Fatalf("load benchmarks: %v", err)
		}
		benchmarks = table
		log.Printf("loaded %d category benchmarks (version %s)", table.Len(), table.Version())
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

	h := httpapi.NewServer(pipeline, store, store)
	log.Printf("mci-server listening on %s", addr)
	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal(err)
	}
}
