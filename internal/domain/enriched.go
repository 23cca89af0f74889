package domain

import "sort"

// Category names an event class.
type Category string

const (
	CategoryPolicyRate      Category = "policy_rate"
	CategoryOfficialComment Category = "official_comment"
	CategoryInflation       Category = "inflation"
	CategoryEmployment      Category = "employment"
	CategoryGDP             Category = "gdp"
	CategoryPMI             Category = "pmi"
	CategoryRetail          Category = "retail"
	CategoryTrade           Category = "trade"
	CategoryOther           Category = "other"
)

// Enriched is an article plus the signals derived from its text.
type Enriched struct {
	Article      Article
	Currencies   []string
	CentralBanks []string
	Category     Category
	ImpactScore  int
	PairScores   map[string]int
}

// Pairs returns the scored pairs in sorted order.
func (e Enriched) Pairs() []string {
	pairs := make([]string, 0, len(e.PairScores))
	for pair := range e.PairScores {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	return pairs
}

// TopCurrencies returns at most n currencies in detection order.
func (e Enriched) TopCurrencies(n int) []string {
	if n <= 0 || len(e.Currencies) <= n {
		return e.Currencies
	}
	return e.Currencies[:n]
}

// Confidence buckets an impact score for readers.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceFor maps an impact score onto a confidence bucket.
func ConfidenceFor(score int) Confidence {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Label is the Japanese label shown in deliveries.
func (c Confidence) Label() string {
	switch c {
	case ConfidenceHigh:
		return "高"
	case ConfidenceMedium:
		return "中"
	default:
		return "低"
	}
}
