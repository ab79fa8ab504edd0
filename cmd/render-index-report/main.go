package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/blustreamin/mci/internal/driftaudit"
	"github.com/blustreamin/mci/internal/keywordindex"
)

func main() {
	inputPath := flag.String("input", "", "Path to saved audit report or metrics snapshot JSON")
	outputPath := flag.String("output", "", "Path to write rebuilt markdown (defaults to stdout)")
	htmlOutputPath := flag.String("html-output", "", "Optional path to write rendered HTML")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	markdown, err := rebuildMarkdown(in)
	if err != nil {
		log.Fatalf("rebuild report: %v", err)
	}

	if err := writeMarkdown(*outputPath, markdown); err != nil {
		log.Fatalf("write markdown: %v", err)
	}
	if *htmlOutputPath != "" {
		htmlDoc, err := buildHTML(markdown)
		if err != nil {
			log.Fatalf("render html: %v", err)
		}
		if err := os.WriteFile(*htmlOutputPath, []byte(htmlDoc), 0o644); err != nil {
			log.Fatalf("write html output: %v", err)
		}
	}
}

// rebuildMarkdown accepts either a saved audit report or a metrics snapshot
// and rebuilds the matching markdown. Reports carry an audit_id, snapshots a
// corpus fingerprint; that is how the two are told apart.
func rebuildMarkdown(in []byte) (string, error) {
	var probe struct {
		AuditID           string `json:"audit_id"`
		CorpusFingerprint string `json:"corpus_fingerprint"`
	}
	if err := json.Unmarshal(in, &probe); err != nil {
		return "", fmt.Errorf("decode input JSON: %w", err)
	}

	switch {
	case probe.AuditID != "":
		var report driftaudit.Report
		if err := json.Unmarshal(in, &report); err != nil {
			return "", fmt.Errorf("decode audit report: %w", err)
		}
		return driftaudit.BuildMarkdown(report), nil
	case probe.CorpusFingerprint != "":
		var snap keywordindex.MetricsSnapshot
		if err := json.Unmarshal(in, &snap); err != nil {
			return "", fmt.Errorf("decode metrics snapshot: %w", err)
		}
		return buildSnapshotMarkdown(snap), nil
	default:
		return "", fmt.Errorf("input is neither an audit report nor a metrics snapshot")
	}
}

func buildSnapshotMarkdown(snap keywordindex.MetricsSnapshot) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Market Category Index: %s\n\n", snap.CategoryID)
	fmt.Fprintf(&b, "- Window: %s\n", snap.WindowID)
	if snap.CorpusSnapshotID != "" {
		fmt.Fprintf(&b, "- Corpus snapshot: %s\n", snap.CorpusSnapshotID)
	}
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", snap.CorpusFingerprint)
	fmt.Fprintf(&b, "- Computed: %s\n\n", snap.ComputedAt.Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Demand Index (Mn) | %.4f |\n", snap.DemandIndexMn)
	fmt.Fprintf(&b, "| Readiness | %.2f |\n", snap.Readiness)
	fmt.Fprintf(&b, "| Spread | %.2f |\n", snap.Spread)
	if snap.TrendPercent != nil {
		fmt.Fprintf(&b, "| Trend | %s (%.2f%%, %s) |\n", snap.TrendLabel, *snap.TrendPercent, snap.TrendSource)
	} else {
		fmt.Fprintf(&b, "| Trend | %s (%s) |\n", snap.TrendLabel, snap.TrendSource)
	}

	a := snap.DemandAudit
	fmt.Fprintf(&b, "\n## Corpus audit\n\n")
	fmt.Fprintf(&b, "- Rows: %d total, %d active, %d eligible, %d dedup winners\n",
		a.TotalRowCount, a.ActiveRowCount, a.EligibleRowCount, a.WinnerCount)
	fmt.Fprintf(&b, "- Volume: %.0f original, %.0f used, %d keywords capped\n",
		a.OriginalVolume, a.TotalVolumeUsed, a.CappedKeywordCount)
	if a.MissingInputs {
		fmt.Fprintf(&b, "- No eligible volume data; scores reflect an empty demand set\n")
	}
	if a.BenchmarkApplied {
		fmt.Fprintf(&b, "- Benchmark calibration applied\n")
	}
	return b.String()
}

func buildHTML(markdown string) (string, error) {
	var content bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Index Report</title>" +
		"<style>body{font-family:system-ui,sans-serif;max-width:860px;margin:2rem auto;padding:0 1rem;color:#1c1917;} " +
		"table{width:100%;border-collapse:collapse;font-size:0.9rem;} " +
		"th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;} " +
		"thead th{background:#f1f5f9;font-weight:700;} code{background:#f5f5f4;padding:0.1rem 0.25rem;}" +
		"</style></head><body>" + content.String() + "</body></html>", nil
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
