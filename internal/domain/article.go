package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Article is a single news item as produced by ingestion.
type Article struct {
	ID        string
	Source    string
	URL       string
	Timestamp time.Time
	Title     string
	Body      string
	Language  string
}

// NewArticle builds an Article whose ID is derived from its URL.
func NewArticle(source, url string, ts time.Time, title, body, lang string) Article {
	return Article{
		ID:        HashURL(url),
		Source:    source,
		URL:       url,
		Timestamp: ts.UTC(),
		Title:     strings.TrimSpace(title),
		Body:      body,
		Language:  lang,
	}
}

// Valid reports whether the article carries the fields the pipeline requires.
func (a Article) Valid() bool {
	return strings.TrimSpace(a.URL) != "" && strings.TrimSpace(a.Title) != ""
}

// Text joins title and body for entity extraction.
func (a Article) Text() string {
	if a.Body == "" {
		return a.Title
	}
	return a.Title + " " + a.Body
}

// HashURL returns the stable identifier for a URL.
func HashURL(url string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}
