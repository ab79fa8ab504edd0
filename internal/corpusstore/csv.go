package corpusstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/blustreamin/mci/internal/keywordindex"
)

// ParseCorpusCSV is the strict ingestion boundary for file-based corpora.
// Expected header: id,text,volume,anchor_id,intent_bucket,active. Volume may
// be empty (unknown); active may be empty (counts as active). Anything else
// malformed fails the whole file with a line number.
func ParseCorpusCSV(r io.Reader) ([]keywordindex.KeywordRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("corpus file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "text", "volume", "anchor_id", "intent_bucket", "active"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var rows []keywordindex.KeywordRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := keywordindex.KeywordRow{
			ID:           strings.TrimSpace(record[col["id"]]),
			Text:         record[col["text"]],
			AnchorID:     strings.TrimSpace(record[col["anchor_id"]]),
			IntentBucket: strings.TrimSpace(record[col["intent_bucket"]]),
		}
		if row.ID == "" {
			return nil, fmt.Errorf("line %d: id is required", line)
		}

		if raw := strings.TrimSpace(record[col["volume"]]); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: volume %q is not a number", line, raw)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: volume %q is not finite", line, raw)
			}
			row.Volume = &v
		}

		raw := strings.ToLower(strings.TrimSpace(record[col["active"]]))
		switch raw {
		case "", "true", "1", "yes":
			row.Active = true
		case "false", "0", "no":
			row.Active = false
		default:
			return nil, fmt.Errorf("line %d: active %q is not a boolean", line, raw)
		}

		rows = append(rows, row)
	}
	return rows, nil
}
