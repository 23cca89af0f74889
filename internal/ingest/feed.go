package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/retry"
)

// FeedOptions parameterise the RSS/Atom collector.
type FeedOptions struct {
	Feeds     []string
	Timeout   time.Duration
	UserAgent string
	Retry     retry.Policy
	Now       func() time.Time
}

// FeedCollector fetches RSS and Atom feeds. A feed that keeps failing is
// skipped so the rest of the batch still arrives.
type FeedCollector struct {
	opts   FeedOptions
	logger zerolog.Logger
	client *http.Client
}

// NewFeedCollector constructs a feed collector.
func NewFeedCollector(opts FeedOptions, logger zerolog.Logger) *FeedCollector {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "fxnews/1.0"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FeedCollector{
		opts:   opts,
		logger: logger.With().Str("component", "feed_collector").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Collect returns at most limitPerSource items from each feed, merged and
// sorted newest first. It fails only when every feed failed.
func (c *FeedCollector) Collect(ctx context.Context, limitPerSource int) ([]domain.Article, error) {
	if len(c.opts.Feeds) == 0 {
		return nil, nil
	}

	var (
		out    []domain.Article
		failed int
		errs   []error
	)
	for _, feedURL := range c.opts.Feeds {
		items, err := c.collectFeed(ctx, feedURL, limitPerSource)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			errs = append(errs, err)
			c.logger.Warn().Err(err).Str("feed", feedURL).Msg("feed skipped")
			continue
		}
		out = append(out, items...)
	}

	if failed == len(c.opts.Feeds) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failed, errors.Join(errs...))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	c.logger.Debug().Int("articles", len(out)).Int("feeds_failed", failed).Msg("feeds collected")
	return out, nil
}

func (c *FeedCollector) collectFeed(ctx context.Context, feedURL string, limit int) ([]domain.Article, error) {
	parser := gofeed.NewParser()
	parser.Client = c.client
	parser.UserAgent = c.opts.UserAgent

	var feed *gofeed.Feed
	err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) error {
		f, err := parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}
		feed = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = hostOf(feedURL)
	}

	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	fetchedAt := c.opts.Now()
	out := make([]domain.Article, 0, len(items))
	for _, item := range items {
		article, ok := toArticle(item, source, fetchedAt)
		if !ok {
			c.logger.Debug().Str("feed", feedURL).Str("link", item.Link).Msg("entry skipped")
			continue
		}
		out = append(out, article)
	}
	return out, nil
}

// toArticle maps a feed entry. Entries without a link or title, or whose date
// is present but unparseable, are rejected.
func toArticle(item *gofeed.Item, source string, fetchedAt time.Time) (domain.Article, bool) {
	link := strings.TrimSpace(item.Link)
	title := CleanText(item.Title)
	if link == "" || title == "" {
		return domain.Article{}, false
	}

	ts, ok := entryTime(item, fetchedAt)
	if !ok {
		return domain.Article{}, false
	}

	raw := item.Content
	if strings.TrimSpace(raw) == "" {
		raw = item.Description
	}
	body := HTMLText(raw)

	return domain.NewArticle(source, link, ts, title, body, DetectLanguage(title+" "+body)), true
}

func entryTime(item *gofeed.Item, fallback time.Time) (time.Time, bool) {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed, true
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed, true
	case strings.TrimSpace(item.Published) != "" || strings.TrimSpace(item.Updated) != "":
		return time.Time{}, false
	default:
		return fallback, true
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// feedsFile is the on-disk feeds list:
//
//	feeds:
//	  - https://...
type feedsFile struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads a YAML feeds list, dropping blanks and duplicates.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds file: %w", err)
	}
	defer f.Close()

	var cfg feedsFile
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds file: %w", err)
	}
	return MergeFeeds(cfg.Feeds), nil
}

// MergeFeeds concatenates feed lists, keeping first occurrences.
func MergeFeeds(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, feed := range list {
			feed = strings.TrimSpace(feed)
			if feed == "" {
				continue
			}
			if _, dup := seen[feed]; dup {
				continue
			}
			seen[feed] = struct{}{}
			out = append(out, feed)
		}
	}
	return out
}
