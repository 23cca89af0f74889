package filter

import (
	"testing"

	"fx-news-alerts/internal/domain"
)

func newTestFilter(allow ...string) *Filter {
	return New(Options{
		PairsAllowlist:     allow,
		BreakingThreshold:  60,
		DigestThreshold:    40,
		PairScoreThreshold: 50,
		ImpactFloor:        20,
	})
}

func enriched(id string, impact int, currencies []string, pairs map[string]int) domain.Enriched {
	return domain.Enriched{
		Article:     domain.Article{ID: id, Title: id, URL: "https://example.com/" + id},
		Currencies:  currencies,
		ImpactScore: impact,
		PairScores:  pairs,
	}
}

func TestMinorOnlyAlwaysExcluded(t *testing.T) {
	f := newTestFilter("USDTRY")
	for _, impact := range []int{0, 50, 100} {
		e := enriched("try", impact, []string{"TRY"}, map[string]int{"USDTRY": 100})
		if !f.ShouldExclude(e) {
			t.Fatalf("TRY-only article should be excluded at impact %d", impact)
		}
		if got := f.FilterForBreaking([]domain.Enriched{e}); len(got) != 0 {
			t.Fatal("excluded article must not pass breaking filter")
		}
	}
}

func TestExcludeFloorAndMajors(t *testing.T) {
	f := newTestFilter("USDJPY")
	if !f.ShouldExclude(enriched("low", 19, []string{"USD"}, nil)) {
		t.Fatal("impact below floor should be excluded")
	}
	if f.ShouldExclude(enriched("mixed", 50, []string{"TRY", "USD"}, nil)) {
		t.Fatal("a major alongside a minor should not be excluded")
	}
	if f.ShouldExclude(enriched("none", 50, nil, nil)) {
		t.Fatal("no currencies above floor should not be excluded")
	}
}

func TestBreakingAtThresholdRequiresPair(t *testing.T) {
	f := newTestFilter("USDJPY")
	e := enriched("edge", 60, []string{"USD", "JPY"}, map[string]int{"USDJPY": 49, "EURUSD": 100})
	if f.IsBreaking(e) {
		t.Fatal("no allow-listed pair at or above threshold means not breaking")
	}
	e.PairScores["USDJPY"] = 50
	if !f.IsBreaking(e) {
		t.Fatal("pair at threshold with impact at threshold should be breaking")
	}
}

func TestBreakingScenario(t *testing.T) {
	f := newTestFilter("USDJPY")
	hot := enriched("hot", 75, []string{"USD", "JPY"}, map[string]int{"USDJPY": 60})
	cold := enriched("cold", 75, []string{"USD", "JPY"}, map[string]int{"USDJPY": 40})
	if !f.IsBreaking(hot) {
		t.Fatal("USDJPY 60 should be breaking")
	}
	if f.IsBreaking(cold) {
		t.Fatal("USDJPY 40 should not be breaking")
	}
}

func TestDigestWorthyNeedsOnlyPresence(t *testing.T) {
	f := newTestFilter("USDJPY")
	e := enriched("d", 40, []string{"USD", "JPY"}, map[string]int{"USDJPY": 0})
	if !f.IsDigestWorthy(e) {
		t.Fatal("allow-listed pair at any score should qualify for digest")
	}
	e.ImpactScore = 39
	if f.IsDigestWorthy(e) {
		t.Fatal("below digest threshold should not qualify")
	}

	strict := New(Options{PairsAllowlist: []string{"USDJPY"}, DigestThreshold: 40, DigestPairScoreMin: 30})
	e.ImpactScore = 40
	if strict.IsDigestWorthy(e) {
		t.Fatal("digest pair minimum should apply when configured")
	}
}

func TestFilterForBreakingPreservesOrder(t *testing.T) {
	f := newTestFilter("USDJPY")
	items := []domain.Enriched{
		enriched("a", 70, []string{"USD"}, map[string]int{"USDJPY": 80}),
		enriched("b", 95, []string{"USD"}, map[string]int{"USDJPY": 80}),
		enriched("c", 10, []string{"USD"}, map[string]int{"USDJPY": 80}),
		enriched("d", 65, []string{"USD"}, map[string]int{"USDJPY": 80}),
	}
	got := f.FilterForBreaking(items)
	if len(got) != 3 || got[0].Article.ID != "a" || got[1].Article.ID != "b" || got[2].Article.ID != "d" {
		t.Fatalf("unexpected breaking order: %+v", got)
	}
}

func TestFilterForDigestSortsAndLimits(t *testing.T) {
	f := newTestFilter("USDJPY", "EURUSD")
	var items []domain.Enriched
	for i, impact := range []int{45, 90, 60, 75, 41, 99, 10} {
		items = append(items, enriched(string(rune('a'+i)), impact, []string{"USD"}, map[string]int{"EURUSD": 1}))
	}
	for _, limit := range []int{0, 1, 3, 10} {
		got := f.FilterForDigest(items, limit)
		if len(got) > limit {
			t.Fatalf("limit %d exceeded: %d", limit, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].ImpactScore < got[i].ImpactScore {
				t.Fatalf("digest not sorted descending: %d before %d", got[i-1].ImpactScore, got[i].ImpactScore)
			}
		}
	}
	if got := f.FilterForDigest(items, 10); len(got) != 6 || got[0].ImpactScore != 99 {
		t.Fatalf("expected 6 items led by 99, got %d", len(got))
	}
}
