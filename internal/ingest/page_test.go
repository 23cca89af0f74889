package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPageFetcherExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Site | BOJ decision</title>
<meta property="og:title" content="BOJ keeps rates at 0.1%"></head>
<body><nav><p>Menu entry that is long enough to count</p></nav>
<article><p>The Bank of Japan kept its policy rate unchanged on Tuesday.</p>
<p>short</p><p>USD/JPY rose to 151 after the announcement.</p></article></body></html>`))
	}))
	defer srv.Close()

	p := NewPageFetcher(0, "", zerolog.Nop())
	article, err := p.Fetch(context.Background(), srv.URL+"/boj")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if article.Title != "BOJ keeps rates at 0.1%" {
		t.Fatalf("og:title should win, got %q", article.Title)
	}
	if !strings.Contains(article.Body, "policy rate unchanged") || !strings.Contains(article.Body, "USD/JPY rose") {
		t.Fatalf("article paragraphs missing: %q", article.Body)
	}
	if strings.Contains(article.Body, "Menu entry") || strings.Contains(article.Body, "short") {
		t.Fatalf("navigation or short paragraphs leaked: %q", article.Body)
	}
}

func TestPageFetcherStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := NewPageFetcher(0, "", zerolog.Nop()).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("non-200 should fail")
	}
}
