package keywordindex

import (
	"math"
	"sort"
	"strings"
)

// Intent weights by bucket. High-intent buckets score 1.0, mid-intent 0.70,
// low-intent and the default bucket 0.40. Buckets outside the table get
// unknownIntentWeight.
var intentWeights = map[string]float64{
	"transactional": 1.00,
	"commercial":    0.70,
	"comparison":    0.70,
	"informational": 0.40,
	"default":       0.40,
	"":              0.40,
}

const unknownIntentWeight = 0.55

func IntentWeight(bucket string) float64 {
	if w, ok := intentWeights[normalizeBucket(bucket)]; ok {
		return w
	}
	return unknownIntentWeight
}

// DemandIndexMn is the volume aggregate on a millions-of-searches scale.
// It runs over the full eligible demand set: demand is a volume measure,
// so duplicate phrasings of the same term all count.
func DemandIndexMn(ds DemandSet) float64 {
	return ds.TotalVolumeUsed / 1_000_000
}

// ReadinessScore measures how transaction-oriented the intent mix is,
// over eligible dedup winners only. The square root compresses the
// normalized average so scores do not polarize at 1 and 10.
func ReadinessScore(winners []KeywordRow) float64 {
	var weighted, volume float64
	for _, r := range winners {
		if !Eligible(r) {
			continue
		}
		v := *r.Volume
		weighted += v * IntentWeight(r.IntentBucket)
		volume += v
	}
	avgIntent := 0.0
	if volume > 0 {
		avgIntent = weighted / volume
	}
	norm := clamp((avgIntent-0.5)/0.5, 0, 1)
	return clamp(1+9*math.Sqrt(norm), 1, 10)
}

// SpreadScore measures how fragmented winner volume is across anchors:
// the complement of the top-3 anchor concentration, on a 1-10 scale.
// Fewer than two anchors with volume is maximally concentrated.
func SpreadScore(winners []KeywordRow) float64 {
	byAnchor := map[string]float64{}
	var total float64
	for _, r := range winners {
		if !Eligible(r) {
			continue
		}
		byAnchor[r.AnchorID] += *r.Volume
		total += *r.Volume
	}

	shares := make([]float64, 0, len(byAnchor))
	for _, v := range byAnchor {
		if v > 0 {
			shares = append(shares, v/total)
		}
	}
	if len(shares) < 2 {
		return 1
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(shares)))
	top3Share := 0.0
	for i := 0; i < len(shares) && i < 3; i++ {
		top3Share += shares[i]
	}
	return clamp(10*(1-top3Share), 1, 10)
}

// TrendLabelFor maps a trend percentage to its qualitative label. A nil
// percent is Unknown, never zero.
func TrendLabelFor(percent *float64) string {
	switch {
	case percent == nil:
		return TrendLabelUnknown
	case *percent > 0.5:
		return TrendLabelGrowing
	case *percent < -0.5:
		return TrendLabelDeclining
	default:
		return TrendLabelStable
	}
}

func normalizeBucket(bucket string) string {
	return strings.ToLower(strings.TrimSpace(bucket))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
