package dedupe

import (
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"

	"fx-news-alerts/internal/domain"
)

// Similarity returns a 0-100 similarity ratio between two strings.
type Similarity func(a, b string) float64

// Record is one retained story.
type Record struct {
	URLHash   string
	Title     string
	FirstSeen time.Time
}

// Options tune the duplicate checker.
type Options struct {
	TTL        time.Duration
	Threshold  float64
	MaxEntries int
	Similarity Similarity
	Now        func() time.Time
}

// Checker suppresses re-delivery of the same or near-identical story within
// a retention window. Expired entries are purged lazily on every check.
type Checker struct {
	mu      sync.Mutex
	opts    Options
	records []Record
	index   map[string]int
}

// New constructs a Checker, filling unset options with defaults.
func New(opts Options) *Checker {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 85
	}
	if opts.Similarity == nil {
		opts.Similarity = LevenshteinRatio
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Checker{opts: opts, index: make(map[string]int)}
}

// Empty returns a new Checker with the same options and no records.
func (c *Checker) Empty() *Checker {
	return &Checker{opts: c.opts, index: make(map[string]int)}
}

// IsDuplicate reports whether url was already seen or title closely matches a
// retained title.
func (c *Checker) IsDuplicate(url, title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked(c.opts.Now())

	if _, ok := c.index[domain.HashURL(url)]; ok {
		return true
	}

	candidate := normalizeTitle(title)
	if candidate == "" {
		return false
	}
	for _, r := range c.records {
		if c.opts.Similarity(candidate, normalizeTitle(r.Title)) >= c.opts.Threshold {
			return true
		}
	}
	return false
}

// Add retains a story. It is a no-op when the URL is already retained.
func (c *Checker) Add(url, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(Record{URLHash: domain.HashURL(url), Title: title, FirstSeen: c.opts.Now()})
}

// Restore loads previously persisted records, skipping expired ones.
func (c *Checker) Restore(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.opts.Now()
	for _, r := range records {
		if r.URLHash == "" || now.Sub(r.FirstSeen) >= c.opts.TTL {
			continue
		}
		c.insertLocked(r)
	}
}

// Len returns the number of retained records without purging.
func (c *Checker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func (c *Checker) insertLocked(r Record) {
	if _, ok := c.index[r.URLHash]; ok {
		return
	}
	c.records = append(c.records, r)
	c.index[r.URLHash] = len(c.records) - 1

	if c.opts.MaxEntries > 0 && len(c.records) > c.opts.MaxEntries {
		oldest := 0
		for i, rec := range c.records {
			if rec.FirstSeen.Before(c.records[oldest].FirstSeen) {
				oldest = i
			}
		}
		c.removeLocked(map[int]bool{oldest: true})
	}
}

func (c *Checker) purgeLocked(now time.Time) {
	var expired map[int]bool
	for i, r := range c.records {
		if now.Sub(r.FirstSeen) >= c.opts.TTL {
			if expired == nil {
				expired = make(map[int]bool)
			}
			expired[i] = true
		}
	}
	if expired != nil {
		c.removeLocked(expired)
	}
}

func (c *Checker) removeLocked(drop map[int]bool) {
	kept := c.records[:0]
	for i, r := range c.records {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	c.records = kept
	c.index = make(map[string]int, len(kept))
	for i, r := range kept {
		c.index[r.URLHash] = i
	}
}

// LevenshteinRatio scores similarity as 100 * (1 - distance / longer length),
// measured in runes.
func LevenshteinRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
