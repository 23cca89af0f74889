package scoring

import (
	"testing"

	"fx-news-alerts/internal/domain"
)

func TestImpactScenarios(t *testing.T) {
	s := NewScorer(DefaultWeights())

	hot := s.Impact("Fed surprises with emergency rate hike", domain.CategoryPolicyRate, []string{"USD"}, []string{"FED"})
	if hot < 80 {
		t.Fatalf("policy surprise should score >= 80, got %d", hot)
	}

	calm := s.Impact("Market remains stable with minor fluctuations", domain.CategoryOther, nil, nil)
	if calm > 30 {
		t.Fatalf("calm market text should score <= 30, got %d", calm)
	}
	if calm != 10 {
		t.Fatalf("expected 20 - 2*5 = 10, got %d", calm)
	}
}

func TestImpactDeterministicAndBounded(t *testing.T) {
	s := NewScorer(DefaultWeights())
	texts := []string{
		"",
		"surprise shock emergency crisis crash surge plunge record historic unprecedented",
		"expected forecast predicted unchanged steady stable minor 予想通り 安定 小幅",
		"日銀サプライズ 急騰",
	}
	for cat := range DefaultWeights().Category {
		for _, text := range texts {
			a := s.Impact(text, cat, []string{"USD", "JPY", "EUR"}, []string{"FED", "BOJ"})
			b := s.Impact(text, cat, []string{"USD", "JPY", "EUR"}, []string{"FED", "BOJ"})
			if a != b {
				t.Fatalf("non-deterministic score for %q", text)
			}
			if a < 0 || a > 100 {
				t.Fatalf("score out of range: %d", a)
			}
		}
	}
}

func TestImpactMonotonicKeywords(t *testing.T) {
	w := DefaultWeights()
	s := NewScorer(w)
	base := "ECB statement on euro area outlook"
	for _, cat := range []domain.Category{domain.CategoryOther, domain.CategoryGDP, domain.CategoryPolicyRate} {
		before := s.Impact(base, cat, []string{"EUR"}, []string{"ECB"})
		for _, kw := range w.HighImpact {
			if after := s.Impact(base+" "+kw, cat, []string{"EUR"}, []string{"ECB"}); after < before {
				t.Fatalf("high-impact %q decreased score %d -> %d", kw, before, after)
			}
		}
		for _, kw := range w.LowImpact {
			if after := s.Impact(base+" "+kw, cat, []string{"EUR"}, []string{"ECB"}); after > before {
				t.Fatalf("low-impact %q increased score %d -> %d", kw, before, after)
			}
		}
	}
}

func TestUnexpectedIsNotPenalised(t *testing.T) {
	s := NewScorer(DefaultWeights())
	got := s.Impact("unexpected", domain.CategoryOther, nil, nil)
	if got != 30 {
		t.Fatalf("unexpected should only add the high bonus, got %d", got)
	}
}

func TestImpactBonuses(t *testing.T) {
	s := NewScorer(DefaultWeights())
	plain := s.Impact("text", domain.CategoryTrade, nil, nil)
	multiCcy := s.Impact("text", domain.CategoryTrade, []string{"USD", "EUR", "JPY"}, nil)
	multiBank := s.Impact("text", domain.CategoryTrade, nil, []string{"FED", "ECB"})
	both := s.Impact("text", domain.CategoryTrade, []string{"USD", "EUR", "JPY"}, []string{"FED", "ECB"})

	if multiCcy-plain != 10 {
		t.Fatalf("currency bonus should be 10, got %d", multiCcy-plain)
	}
	if multiBank-plain != 15 {
		t.Fatalf("bank bonus should be 15, got %d", multiBank-plain)
	}
	if both-plain != 25 {
		t.Fatalf("bonuses should add, got %d", both-plain)
	}
}

func TestUnknownCategoryUsesOtherWeight(t *testing.T) {
	s := NewScorer(DefaultWeights())
	if got := s.Impact("text", "", nil, nil); got != 20 {
		t.Fatalf("expected other weight 20, got %d", got)
	}
}

func TestPairScores(t *testing.T) {
	s := NewScorer(DefaultWeights())
	text := "USDJPY spikes as BOJ intervenes; USD and JPY volatile, USD bid"
	scores := s.PairScores(text, []string{"USDJPY", "EURUSD"}, []string{"USD", "JPY"}, []string{"BOJ"})

	// mention 50 + USD legs capped at 30 + JPY 2 hits 20 + BOJ governs JPY 20 => 120 -> 100
	if scores["USDJPY"] != 100 {
		t.Fatalf("USDJPY expected 100, got %d", scores["USDJPY"])
	}
	// no mention, EUR 0, USD capped 30
	if scores["EURUSD"] != 30 {
		t.Fatalf("EURUSD expected 30, got %d", scores["EURUSD"])
	}
	for pair, v := range scores {
		if v < 0 || v > 100 {
			t.Fatalf("%s out of range: %d", pair, v)
		}
	}
}

func TestPairScoresEmpty(t *testing.T) {
	s := NewScorer(DefaultWeights())
	if got := s.PairScores("", []string{"USDJPY"}, nil, nil); got["USDJPY"] != 0 {
		t.Fatalf("empty text should score zero, got %d", got["USDJPY"])
	}
	if got := s.PairScores("USDJPY", nil, nil, nil); len(got) != 0 {
		t.Fatalf("no pairs should yield empty map, got %v", got)
	}
}
