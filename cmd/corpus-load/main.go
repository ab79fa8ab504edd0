package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/blustreamin/mci/internal/corpusstore"
)

func main() {
	dbPath := flag.String("db", "./data/mci.db", "path to SQLite database file")
	inputPath := flag.String("input", "", "path to corpus CSV file")
	categoryID := flag.String("category", "", "category the corpus belongs to")
	snapshotID := flag.String("corpus-snapshot", "", "corpus snapshot id to store rows under")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}
	if *categoryID == "" {
		log.Fatal("missing required -category")
	}
	if *snapshotID == "" {
		log.Fatal("missing required -corpus-snapshot")
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	rows, err := corpusstore.ParseCorpusCSV(f)
	if err != nil {
		log.Fatalf("parse corpus CSV: %v", err)
	}
	if len(rows) == 0 {
		log.Fatal("corpus CSV contains no rows")
	}

	store, err := corpusstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("open sqlite store (%s): %v", *dbPath, err)
	}
	defer store.Close()

	if err := store.PutRows(context.Background(), *categoryID, *snapshotID, rows); err != nil {
		log.Fatalf("store rows: %v", err)
	}
	log.Printf("loaded %d rows into %s (category=%s, snapshot=%s)", len(rows), *dbPath, *categoryID, *snapshotID)
}
