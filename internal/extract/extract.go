package extract

import (
	"regexp"
	"sort"
	"strings"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/keyword"
)

// pairToken catches concatenated or slashed pair codes such as USDJPY and EUR/USD.
var pairToken = regexp.MustCompile(`(?i)\b([a-z]{3})/?([a-z]{3})\b`)

// Entities is the outcome of Extract.
type Entities struct {
	Currencies   []string
	CentralBanks []string
	Category     domain.Category
}

type compiledBank struct {
	code     string
	currency string
	aliases  keyword.Set
}

type compiledCategory struct {
	category domain.Category
	keywords keyword.Set
}

// Extractor maps raw text to currencies, central banks and an event category.
type Extractor struct {
	currencies []string
	known      map[string]int
	codes      []*regexp.Regexp
	banks      []compiledBank
	categories []compiledCategory

	usdQuoteBases []string
	usdBaseQuotes []string
	crossQuote    string
	crossBases    []string
}

// NewExtractor compiles rules into an Extractor.
func NewExtractor(rules Rules) *Extractor {
	e := &Extractor{
		known:         make(map[string]int, len(rules.Currencies)),
		usdQuoteBases: upperAll(rules.USDQuoteBases),
		usdBaseQuotes: upperAll(rules.USDBaseQuotes),
		crossQuote:    strings.ToUpper(rules.CrossQuote),
		crossBases:    upperAll(rules.CrossBases),
	}

	for _, code := range upperAll(rules.Currencies) {
		if _, dup := e.known[code]; dup {
			continue
		}
		e.known[code] = len(e.currencies)
		e.currencies = append(e.currencies, code)
		e.codes = append(e.codes, regexp.MustCompile(`\b`+regexp.QuoteMeta(code)+`\b`))
	}

	for _, b := range rules.Banks {
		e.banks = append(e.banks, compiledBank{
			code:     strings.ToUpper(b.Code),
			currency: strings.ToUpper(b.Currency),
			aliases:  keyword.Compile(b.Aliases, keyword.Whole),
		})
	}

	for _, c := range rules.Categories {
		e.categories = append(e.categories, compiledCategory{
			category: c.Category,
			keywords: keyword.Compile(c.Keywords, keyword.Prefix),
		})
	}

	return e
}

// Extract runs currency, bank and category detection over text.
func (e *Extractor) Extract(text string) Entities {
	if strings.TrimSpace(text) == "" {
		return Entities{}
	}
	return Entities{
		Currencies:   e.Currencies(text),
		CentralBanks: e.CentralBanks(text),
		Category:     e.Category(text),
	}
}

// Currencies returns known currency codes mentioned in text, including those
// implied by a central bank, in table order.
func (e *Extractor) Currencies(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	upper := strings.ToUpper(text)
	found := make(map[string]struct{})

	for i, re := range e.codes {
		if re.MatchString(upper) {
			found[e.currencies[i]] = struct{}{}
		}
	}
	for _, m := range pairToken.FindAllStringSubmatch(upper, -1) {
		_, baseOK := e.known[m[1]]
		_, quoteOK := e.known[m[2]]
		if baseOK && quoteOK {
			found[m[1]] = struct{}{}
			found[m[2]] = struct{}{}
		}
	}
	for _, b := range e.banks {
		if _, ok := e.known[b.currency]; ok && b.aliases.Contains(text) {
			found[b.currency] = struct{}{}
		}
	}

	return e.ordered(found)
}

// CentralBanks returns canonical codes of the banks mentioned in text.
func (e *Extractor) CentralBanks(text string) []string {
	banks := []string{}
	if strings.TrimSpace(text) == "" {
		return banks
	}
	for _, b := range e.banks {
		if b.aliases.Contains(text) {
			banks = append(banks, b.code)
		}
	}
	return banks
}

// Category returns the category with the most keyword hits. Ties go to the
// category declared first; text without hits is CategoryOther.
func (e *Extractor) Category(text string) domain.Category {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	best := domain.CategoryOther
	bestHits := 0
	for _, c := range e.categories {
		if hits := c.keywords.Hits(text); hits > bestHits {
			best = c.category
			bestHits = hits
		}
	}
	return best
}

// Pairs derives six-letter pair codes from a currency set. The result is
// sorted and free of duplicates.
func (e *Extractor) Pairs(currencies []string) []string {
	if len(currencies) == 0 {
		return []string{}
	}
	present := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		present[strings.ToUpper(c)] = true
	}

	set := make(map[string]struct{})
	if present["USD"] {
		for _, base := range e.usdQuoteBases {
			if present[base] {
				set[base+"USD"] = struct{}{}
			}
		}
		for _, quote := range e.usdBaseQuotes {
			if present[quote] {
				set["USD"+quote] = struct{}{}
			}
		}
	}
	if e.crossQuote != "" && present[e.crossQuote] {
		for _, base := range e.crossBases {
			if base != e.crossQuote && present[base] {
				set[base+e.crossQuote] = struct{}{}
			}
		}
	}

	pairs := make([]string, 0, len(set))
	for p := range set {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

func (e *Extractor) ordered(found map[string]struct{}) []string {
	out := make([]string, 0, len(found))
	for code := range found {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return e.known[out[i]] < e.known[out[j]] })
	return out
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}
