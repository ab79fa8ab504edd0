package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/blustreamin/mci/internal/benchmark"
	"github.com/blustreamin/mci/internal/corpusstore"
	"github.com/blustreamin/mci/internal/driftaudit"
	"github.com/blustreamin/mci/internal/keywordindex"
)

func main() {
	dbPath := flag.String("db", "./data/mci.db", "path to SQLite database file")
	categories := flag.String("categories", "", "comma-separated category ids to audit")
	windowID := flag.String("window", "", "reporting window, e.g. 2026-W32")
	snapshotID := flag.String("corpus-snapshot", "", "corpus snapshot id (optional)")
	benchmarksPath := flag.String("benchmarks", "", "path to benchmarks YAML (optional)")
	runs := flag.Int("runs", driftaudit.DefaultRunsPerCategory, "scoring runs per category")
	concurrency := flag.Int("concurrency", driftaudit.DefaultConcurrency, "categories audited in parallel")
	markdownPath := flag.String("markdown", "", "optional path to write the markdown report")
	flag.Parse()

	if *windowID == "" {
		log.Fatal("missing required -window")
	}
	categoryIDs := splitList(*categories)
	if len(categoryIDs) == 0 {
		log.Fatal("missing required -categories")
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

	pipeline := keywordindex.NewPipeline(store, benchmarks, nil, store, keywordindex.DefaultConfig())
	auditor := driftaudit.NewAuditor(pipeline, driftaudit.Options{
		RunsPerCategory: *runs,
		Concurrency:     *concurrency,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("auditing %d categories (%d runs each, concurrency %d)", len(categoryIDs), *runs, *concurrency)
	report, err := auditor.Run(ctx, *windowID, *snapshotID, categoryIDs)
	if err != nil {
		log.Fatalf("run audit: %v", err)
	}

	if err := store.PutReport(ctx, report); err != nil {
		log.Fatalf("persist report: %v", err)
	}
	if *markdownPath != "" {
		if err := os.WriteFile(*markdownPath, []byte(driftaudit.BuildMarkdown(report)), 0o644); err != nil {
			log.Fatalf("write markdown: %v", err)
		}
		log.Printf("markdown report written to %s", *markdownPath)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	fmt.Println(string(out))

	if report.VerdictCounts[driftaudit.VerdictFail] > 0 || report.VerdictCounts[driftaudit.VerdictMissing] > 0 {
		os.Exit(1)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
