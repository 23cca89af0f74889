package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"fx-news-alerts/internal/domain"
)

var (
	bodySelectors  = []string{"article p", ".article-body p", ".content p", ".post-content p", ".entry-content p", "main p", "p"}
	titleSelectors = []string{"meta[property='og:title']", "h1", "title"}
)

// PageFetcher loads a single article page for ad-hoc analysis.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPageFetcher constructs a page fetcher.
func NewPageFetcher(timeout time.Duration, userAgent string, logger zerolog.Logger) *PageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "fxnews/1.0"
	}
	return &PageFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger.With().Str("component", "page_fetcher").Logger(),
		now:       time.Now,
	}
}

// Fetch downloads pageURL and extracts its title and body text.
func (p *PageFetcher) Fetch(ctx context.Context, pageURL string) (domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.Article{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Article{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Article{}, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Article{}, fmt.Errorf("parse document: %w", err)
	}

	title := pageTitle(doc)
	body := pageBody(doc)
	if title == "" {
		return domain.Article{}, fmt.Errorf("page %s has no title", pageURL)
	}
	p.logger.Debug().Str("url", pageURL).Int("body_chars", len([]rune(body))).Msg("page extracted")

	return domain.NewArticle(hostOf(pageURL), pageURL, p.now(), title, body, DetectLanguage(title+" "+body)), nil
}

func pageTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		s := doc.Find(sel).First()
		text := s.AttrOr("content", "")
		if text == "" {
			text = s.Text()
		}
		if text = CleanText(text); text != "" {
			return text
		}
	}
	return ""
}

func pageBody(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer").Remove()
	for _, sel := range bodySelectors {
		var paragraphs []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := CleanText(s.Text()); len([]rune(text)) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n")
		}
	}
	return ""
}
