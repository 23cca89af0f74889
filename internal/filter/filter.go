package filter

import (
	"sort"
	"strings"

	"fx-news-alerts/internal/domain"
)

// DefaultExcluded lists minor currencies that never qualify an article alone.
var DefaultExcluded = []string{"TRY", "ZAR", "BRL", "RUB", "INR", "KRW", "MXN"}

// Options hold classification thresholds.
type Options struct {
	PairsAllowlist     []string
	BreakingThreshold  int
	DigestThreshold    int
	PairScoreThreshold int
	// DigestPairScoreMin is the per-pair minimum applied to digests. Zero keeps
	// digests on allow-list presence alone.
	DigestPairScoreMin int
	ImpactFloor        int
	Excluded           []string
}

// Filter classifies enriched articles. It is stateless.
type Filter struct {
	opts     Options
	allow    map[string]struct{}
	excluded map[string]struct{}
}

// New builds a Filter.
func New(opts Options) *Filter {
	if opts.Excluded == nil {
		opts.Excluded = DefaultExcluded
	}
	f := &Filter{
		opts:     opts,
		allow:    make(map[string]struct{}, len(opts.PairsAllowlist)),
		excluded: make(map[string]struct{}, len(opts.Excluded)),
	}
	for _, p := range opts.PairsAllowlist {
		f.allow[strings.ToUpper(strings.TrimSpace(p))] = struct{}{}
	}
	for _, c := range opts.Excluded {
		f.excluded[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return f
}

// ShouldExclude reports articles that only mention minor currencies or score
// below the hard floor.
func (f *Filter) ShouldExclude(e domain.Enriched) bool {
	if e.ImpactScore < f.opts.ImpactFloor {
		return true
	}
	if len(e.Currencies) == 0 {
		return false
	}
	for _, c := range e.Currencies {
		if _, minor := f.excluded[strings.ToUpper(c)]; !minor {
			return false
		}
	}
	return true
}

// IsBreaking reports whether the article warrants an immediate alert.
func (f *Filter) IsBreaking(e domain.Enriched) bool {
	if e.ImpactScore < f.opts.BreakingThreshold {
		return false
	}
	return f.allowedPairAtLeast(e, f.opts.PairScoreThreshold)
}

// IsDigestWorthy reports whether the article belongs in a digest.
func (f *Filter) IsDigestWorthy(e domain.Enriched) bool {
	if e.ImpactScore < f.opts.DigestThreshold {
		return false
	}
	return f.allowedPairAtLeast(e, f.opts.DigestPairScoreMin)
}

func (f *Filter) allowedPairAtLeast(e domain.Enriched, min int) bool {
	for pair, score := range e.PairScores {
		if _, ok := f.allow[strings.ToUpper(pair)]; ok && score >= min {
			return true
		}
	}
	return false
}

// FilterForBreaking keeps breaking articles in input order.
func (f *Filter) FilterForBreaking(items []domain.Enriched) []domain.Enriched {
	out := make([]domain.Enriched, 0, len(items))
	for _, e := range items {
		if f.ShouldExclude(e) || !f.IsBreaking(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterForDigest keeps digest-worthy articles, highest impact first, truncated to limit.
func (f *Filter) FilterForDigest(items []domain.Enriched, limit int) []domain.Enriched {
	out := make([]domain.Enriched, 0, len(items))
	for _, e := range items {
		if f.ShouldExclude(e) || !f.IsDigestWorthy(e) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ImpactScore > out[j].ImpactScore })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
