package extract

import "fx-news-alerts/internal/domain"

// Bank describes a central bank and the names it goes by.
type Bank struct {
	Code     string
	Currency string
	Aliases  []string
}

// CategoryRule lists the keywords that vote for a category.
type CategoryRule struct {
	Category domain.Category
	Keywords []string
}

// Rules holds the lookup tables used by the Extractor. Build it once at startup
// and hand it to NewExtractor; the extractor never mutates it.
type Rules struct {
	Currencies []string
	Banks      []Bank
	Categories []CategoryRule

	// USDQuoteBases are quoted against USD (EURUSD).
	USDQuoteBases []string
	// USDBaseQuotes take USD as base (USDJPY).
	USDBaseQuotes []string
	// CrossQuote forms crosses with each CrossBases member (EURJPY).
	CrossQuote string
	CrossBases []string
}

// DefaultRules returns the built-in bilingual tables.
func DefaultRules() Rules {
	return Rules{
		Currencies: []string{
			"USD", "EUR", "JPY", "GBP", "AUD", "CAD", "CHF", "NZD",
			"CNY", "HKD", "SGD", "SEK", "NOK", "MXN", "ZAR", "TRY",
			"BRL", "RUB", "INR", "KRW",
		},
		Banks: []Bank{
			{Code: "FED", Currency: "USD", Aliases: []string{"FED", "FRB", "FOMC", "Federal Reserve", "米連邦準備制度理事会", "米連銀"}},
			{Code: "ECB", Currency: "EUR", Aliases: []string{"ECB", "European Central Bank", "欧州中央銀行", "欧州中銀"}},
			{Code: "BOJ", Currency: "JPY", Aliases: []string{"BOJ", "Bank of Japan", "日銀", "日本銀行"}},
			{Code: "BOE", Currency: "GBP", Aliases: []string{"BOE", "Bank of England", "英中銀", "イングランド銀行"}},
			{Code: "RBA", Currency: "AUD", Aliases: []string{"RBA", "Reserve Bank of Australia", "豪中銀", "豪準備銀行"}},
			{Code: "BOC", Currency: "CAD", Aliases: []string{"BOC", "Bank of Canada", "加中銀", "カナダ銀行"}},
			{Code: "SNB", Currency: "CHF", Aliases: []string{"SNB", "Swiss National Bank", "スイス国立銀行", "スイス中銀"}},
			{Code: "RBNZ", Currency: "NZD", Aliases: []string{"RBNZ", "Reserve Bank of New Zealand", "NZ中銀", "ニュージーランド準備銀行"}},
			{Code: "PBOC", Currency: "CNY", Aliases: []string{"PBOC", "People's Bank of China", "中国人民銀行"}},
		},
		Categories: []CategoryRule{
			{Category: domain.CategoryPolicyRate, Keywords: []string{
				"rate decision", "policy rate", "interest rate", "rate hike", "rate cut",
				"金利決定", "政策金利", "利上げ", "利下げ",
				"hawkish", "dovish", "tightening", "easing",
			}},
			{Category: domain.CategoryOfficialComment, Keywords: []string{
				"fed chair", "ecb president", "governor",
				"speech", "testimony", "press conference",
				"議長", "総裁", "発言", "会見",
			}},
			{Category: domain.CategoryInflation, Keywords: []string{
				"cpi", "pce", "inflation", "consumer price",
				"消費者物価", "インフレ", "物価",
			}},
			{Category: domain.CategoryEmployment, Keywords: []string{
				"nfp", "non-farm", "nonfarm", "unemployment", "jobless",
				"雇用統計", "失業率", "新規雇用",
			}},
			{Category: domain.CategoryGDP, Keywords: []string{
				"gdp", "gross domestic", "growth",
				"国内総生産", "成長率",
			}},
			{Category: domain.CategoryPMI, Keywords: []string{
				"pmi", "purchasing managers", "manufacturing",
				"製造業", "サービス業",
			}},
			{Category: domain.CategoryRetail, Keywords: []string{
				"retail sales", "consumer spending",
				"小売売上", "消費支出",
			}},
			{Category: domain.CategoryTrade, Keywords: []string{
				"trade balance", "current account", "exports",
				"貿易収支", "経常収支", "輸出",
			}},
		},
		USDQuoteBases: []string{"EUR", "GBP", "AUD", "NZD", "CAD", "CHF"},
		USDBaseQuotes: []string{"JPY", "CNY", "HKD", "SGD", "SEK", "NOK"},
		CrossQuote:    "JPY",
		CrossBases:    []string{"EUR", "GBP", "AUD", "NZD", "CAD", "CHF"},
	}
}

// BankCurrencies maps canonical bank codes to the currency they govern.
func (r Rules) BankCurrencies() map[string]string {
	out := make(map[string]string, len(r.Banks))
	for _, b := range r.Banks {
		out[b.Code] = b.Currency
	}
	return out
}
