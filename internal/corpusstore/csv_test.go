package corpusstore

import (
	"strings"
	"testing"
)

const sampleCSV = `id,text,volume,anchor_id,intent_bucket,active
kw-1,best crm software,12000,pricing,commercial,true
kw-2,crm login,,brand,navigational,
kw-3,cancel crm subscription,900,churn,transactional,false
`

func TestParseCorpusCSV(t *testing.T) {
	rows, err := ParseCorpusCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	if rows[0].ID != "kw-1" || rows[0].Volume == nil || *rows[0].Volume != 12000 || !rows[0].Active {
		t.Errorf("row 1 mangled: %+v", rows[0])
	}
	if rows[1].Volume != nil {
		t.Error("empty volume must parse as unknown, not zero")
	}
	if !rows[1].Active {
		t.Error("empty active must count as active")
	}
	if rows[2].Active {
		t.Error("explicit false not honored")
	}
}

func TestParseCorpusCSVHeaderOrderFlexible(t *testing.T) {
	csv := "active,volume,id,text,intent_bucket,anchor_id\ntrue,50,kw-9,some keyword,informational,misc\n"
	rows, err := ParseCorpusCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].ID != "kw-9" || *rows[0].Volume != 50 || rows[0].AnchorID != "misc" {
		t.Errorf("reordered header parsed wrong: %+v", rows[0])
	}
}

func TestParseCorpusCSVRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		csv  string
	}{
		{"empty file", ""},
		{"missing column", "id,text,volume\nkw-1,crm,10\n"},
		{"bad volume", "id,text,volume,anchor_id,intent_bucket,active\nkw-1,crm,lots,a,i,true\n"},
		{"bad active", "id,text,volume,anchor_id,intent_bucket,active\nkw-1,crm,10,a,i,maybe\n"},
		{"missing id", "id,text,volume,anchor_id,intent_bucket,active\n,crm,10,a,i,true\n"},
	}
	for _, tc := range cases {
		if _, err := ParseCorpusCSV(strings.NewReader(tc.csv)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
