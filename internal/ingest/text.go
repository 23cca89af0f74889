package ingest

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	spacePattern     = regexp.MustCompile(`\s+`)
	zeroWidth        = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")
	japanesePunct    = strings.NewReplacer("､", "、", "｡", "。", "･", "・", "｢", "「", "｣", "」", "！", "!", "？", "?", "（", "(", "）", ")")
	sentenceEndSpace = regexp.MustCompile(`([。!?])\s*`)
)

// CleanText strips tags, applies NFKC, removes zero-width characters and
// collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	s = norm.NFKC.String(s)
	s = zeroWidth.Replace(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// HTMLText renders an HTML fragment as plain text. Input without markup is
// only cleaned.
func HTMLText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return CleanText(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CleanText(fragment)
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return CleanText(strings.Join(parts, " "))
}

// NormalizeJapanese folds half-width and full-width Japanese punctuation
// into the forms used in deliveries.
func NormalizeJapanese(s string) string {
	if s == "" {
		return ""
	}
	s = japanesePunct.Replace(s)
	s = sentenceEndSpace.ReplaceAllString(s, "$1 ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Language codes returned by DetectLanguage.
const (
	LangJapanese = "ja"
	LangEnglish  = "en"
	LangUnknown  = "unknown"
)

// DetectLanguage guesses ja or en from the share of kana and kanji. Text
// under 20 characters is unknown.
func DetectLanguage(s string) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 20 {
		return LangUnknown
	}
	var total, japanese, latin int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han):
			japanese++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}
	if total == 0 {
		return LangUnknown
	}
	if float64(japanese)/float64(total) >= 0.3 {
		return LangJapanese
	}
	if float64(latin)/float64(total) >= 0.5 {
		return LangEnglish
	}
	return LangUnknown
}

// Truncate cuts s to at most max runes, ending with suffix when shortened.
func Truncate(s string, max int, suffix string) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	keep := max - len([]rune(suffix))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}
