package scoring

import (
	"strings"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/keyword"
)

// Weights carries every constant the Scorer uses.
type Weights struct {
	Category     map[domain.Category]int
	HighImpact   []string
	LowImpact    []string
	HighBonus    int
	LowPenalty   int
	MultiCcyMin  int
	MultiCcy     int
	MultiBankMin int
	MultiBank    int

	PairMention  int
	LegPerHit    int
	LegCap       int
	BankPerLeg   int
	BankCurrency map[string]string
}

// DefaultWeights returns the built-in scoring table.
func DefaultWeights() Weights {
	return Weights{
		Category: map[domain.Category]int{
			domain.CategoryPolicyRate:      90,
			domain.CategoryOfficialComment: 70,
			domain.CategoryInflation:       65,
			domain.CategoryEmployment:      60,
			domain.CategoryGDP:             55,
			domain.CategoryPMI:             45,
			domain.CategoryRetail:          40,
			domain.CategoryTrade:           35,
			domain.CategoryOther:           20,
		},
		HighImpact: []string{
			"surprise", "unexpected", "shock", "emergency", "crisis",
			"crash", "surge", "plunge", "soar", "record", "historic",
			"unprecedented", "breaking", "alert", "urgent",
			"サプライズ", "予想外", "急騰", "急落", "過去最",
		},
		LowImpact: []string{
			"expected", "forecast", "predicted", "inline", "in line",
			"unchanged", "steady", "stable", "minor",
			"予想通り", "変化なし", "安定", "小幅",
		},
		HighBonus:    10,
		LowPenalty:   5,
		MultiCcyMin:  3,
		MultiCcy:     10,
		MultiBankMin: 2,
		MultiBank:    15,

		PairMention: 50,
		LegPerHit:   10,
		LegCap:      30,
		BankPerLeg:  20,
		BankCurrency: map[string]string{
			"FED": "USD", "ECB": "EUR", "BOJ": "JPY", "BOE": "GBP", "RBA": "AUD",
			"BOC": "CAD", "SNB": "CHF", "RBNZ": "NZD", "PBOC": "CNY",
		},
	}
}

// Scorer turns extracted entities into impact and per-pair scores. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	w    Weights
	high keyword.Set
	low  keyword.Set
}

// NewScorer compiles weights into a Scorer.
func NewScorer(w Weights) *Scorer {
	return &Scorer{
		w:    w,
		high: keyword.Compile(w.HighImpact, keyword.Prefix),
		low:  keyword.Compile(w.LowImpact, keyword.Prefix),
	}
}

// Impact returns the 0-100 impact score of a text.
func (s *Scorer) Impact(text string, category domain.Category, currencies, banks []string) int {
	base, ok := s.w.Category[category]
	if !ok {
		base = s.w.Category[domain.CategoryOther]
	}

	score := base
	score += s.high.Hits(text) * s.w.HighBonus
	score -= s.low.Hits(text) * s.w.LowPenalty

	if distinct(currencies) >= s.w.MultiCcyMin {
		score += s.w.MultiCcy
	}
	if distinct(banks) >= s.w.MultiBankMin {
		score += s.w.MultiBank
	}

	return clamp(score)
}

// PairScores scores each candidate pair independently.
func (s *Scorer) PairScores(text string, pairs, currencies, banks []string) map[string]int {
	scores := make(map[string]int, len(pairs))
	if len(pairs) == 0 {
		return scores
	}

	upper := strings.ToUpper(text)
	governed := make(map[string]int)
	for _, b := range banks {
		if ccy, ok := s.w.BankCurrency[strings.ToUpper(b)]; ok {
			governed[ccy]++
		}
	}

	for _, pair := range pairs {
		pair = strings.ToUpper(pair)
		if len(pair) != 6 {
			continue
		}
		base, quote := pair[:3], pair[3:]

		score := 0
		if upper != "" && strings.Contains(upper, pair) {
			score += s.w.PairMention
		}
		score += s.legScore(upper, base)
		score += s.legScore(upper, quote)
		if governed[base] > 0 {
			score += s.w.BankPerLeg
		}
		if governed[quote] > 0 {
			score += s.w.BankPerLeg
		}

		scores[pair] = clamp(score)
	}
	return scores
}

func (s *Scorer) legScore(upper, leg string) int {
	if upper == "" {
		return 0
	}
	v := strings.Count(upper, leg) * s.w.LegPerHit
	if v > s.w.LegCap {
		return s.w.LegCap
	}
	return v
}

func distinct(values []string) int {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToUpper(v)] = struct{}{}
	}
	return len(set)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
