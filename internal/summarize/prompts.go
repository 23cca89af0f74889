package summarize

import (
	"fmt"
	"strings"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/ingest"
)

const promptBodyRunes = 1000

func summaryPrompt(item domain.Enriched) string {
	return fmt.Sprintf(`あなたはFXトレーダー向けのニュース編集者です。次の記事を日本語で簡潔に要約してください。

タイトル: %s
本文: %s
出所: %s
関連通貨: %s
カテゴリ: %s
影響度スコア: %d/100

次の形式で、各項目を1〜2文で出力してください。
要点：
なぜ重要か：
関連ペア：
確度：高・中・低のいずれか`,
		item.Article.Title,
		ingest.Truncate(item.Article.Body, promptBodyRunes, "..."),
		item.Article.Source,
		joinOrDash(item.Currencies),
		item.Category,
		item.ImpactScore,
	)
}

func actionPrompt(summary string, item domain.Enriched) string {
	return fmt.Sprintf(`次のニュース要約を踏まえ、個人トレーダー向けの「次の一手」の考え方を日本語で示してください。

要約:
%s

関連通貨: %s
関連ペア: %s
カテゴリ: %s
影響度スコア: %d/100

上昇シナリオと下落シナリオをそれぞれ2文以内で述べ、確認すべき価格帯や指標を挙げてください。
売買の推奨や断定的な表現は避けてください。`,
		summary,
		joinOrDash(item.Currencies),
		joinOrDash(item.Pairs()),
		item.Category,
		item.ImpactScore,
	)
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
