package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title and classifies links", func(t *testing.T) {
		t.Parallel()

		src := `<html><head><title> Guide </title></head><body>
			<a href="/internal">Internal</a>
			<a href="http://docs.test/same#frag">Same host</a>
			<a href="https://other.test/x">External</a>
			<a href="#top">Top</a>
			<a href="mailto:a@docs.test">Mail</a>
			<a href="javascript:void(0)">Script</a>
			<a href="/internal">Duplicate</a>
		</body></html>`

		parser, err := NewParser("http://docs.test/guide/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		result, err := parser.Parse(strings.NewReader(src))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if result.Title != "Guide" {
			t.Errorf("expected title 'Guide', got %q", result.Title)
		}
		if result.Doc == nil {
			t.Error("expected parsed document")
		}
		if len(result.Links) != 3 {
			t.Errorf("expected 3 links, got %d: %v", len(result.Links), result.Links)
		}
		wantInternal := []string{"http://docs.test/internal", "http://docs.test/same"}
		if fmt.Sprint(result.InternalLinks) != fmt.Sprint(wantInternal) {
			t.Errorf("internal links = %v, want %v", result.InternalLinks, wantInternal)
		}
		if len(result.ExternalLinks) != 1 || result.ExternalLinks[0] != "https://other.test/x" {
			t.Errorf("external links = %v", result.ExternalLinks)
		}
	})

	t.Run("honours base element", func(t *testing.T) {
		t.Parallel()

		src := `<html><head><base href="/v2/"></head><body><a href="intro">x</a></body></html>`
		parser, err := NewParser("http://docs.test/guide/page.html")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		result, err := parser.Parse(strings.NewReader(src))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if len(result.Links) != 1 || result.Links[0] != "http://docs.test/v2/intro" {
			t.Errorf("links = %v", result.Links)
		}
	})
}

func TestPagePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"http://Docs.Test", "docs.test/index.html"},
		{"http://docs.test/", "docs.test/index.html"},
		{"http://docs.test/guide/", "docs.test/guide/index.html"},
		{"http://docs.test/guide", "docs.test/guide.html"},
		{"http://docs.test/guide/intro.html", "docs.test/guide/intro.html"},
		{"http://docs.test/../../etc/passwd", "docs.test/etc/passwd.html"},
		{"http://docs.test:8080/a.htm?x=1", "docs.test:8080/a.htm"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := PagePath(u); got != tt.want {
				t.Errorf("PagePath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// newSite serves a small linked site.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><div id="content">
<a href="/a">A</a><a href="/b">B</a><a href="/missing">M</a><a href="/data.json">J</a>
<a href="https://elsewhere.test/">E</a><pre>x = 1</pre></div></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/a/deep">deep</a></body></html>`)
	})
	mux.HandleFunc("/a/deep", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>deep</body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/">home</a></body></html>`)
	})
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pagePaths(t *testing.T, host string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.TrimPrefix(p, host+"/")
	}
	return out
}

func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		spider := NewSpider(srv.Client(), WithDelay(0))
		pages, err := spider.Crawl(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if len(pages) != 1 {
			t.Fatalf("expected 1 page, got %d", len(pages))
		}

		pg := pages[0]
		if pg.Doc == nil {
			t.Error("expected page to be parsed")
		}
		if pg.BaseURL == nil || pg.BaseURL.String() != srv.URL+"/" {
			t.Errorf("BaseURL = %v, want %s/", pg.BaseURL, srv.URL)
		}
		if pg.Hash == "" {
			t.Error("expected hash to be computed")
		}
		if !strings.HasSuffix(pg.Path, "/index.html") {
			t.Errorf("Path = %q", pg.Path)
		}
	})

	t.Run("follows same-site links breadth first", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		u, err := url.Parse(srv.URL)
		if err != nil {
			t.Fatal(err)
		}

		spider := NewSpider(srv.Client(), WithDelay(0), WithMaxDepth(2))
		pages, err := spider.Crawl(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		paths := make([]string, len(pages))
		for i, p := range pages {
			paths[i] = p.Path
		}
		got := pagePaths(t, u.Host, paths)
		want := []string{"index.html", "a.html", "b.html", "a/deep.html"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("pages = %v, want %v", got, want)
		}

		stats := spider.Stats()
		if stats.PagesFetched != 4 {
			t.Errorf("PagesFetched = %d, want 4", stats.PagesFetched)
		}
	})

	t.Run("max pages", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		spider := NewSpider(srv.Client(), WithDelay(0), WithMaxDepth(5), WithMaxPages(2))
		pages, err := spider.Crawl(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if len(pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(pages))
		}
	})

	t.Run("ignore patterns", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		spider := NewSpider(srv.Client(), WithDelay(0), WithMaxDepth(2), WithIgnorePatterns([]string{"/a/**", "/a"}))
		pages, err := spider.Crawl(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		for _, p := range pages {
			if strings.Contains(p.Path, "/a") {
				t.Errorf("ignored page fetched: %s", p.Path)
			}
		}
		if len(pages) != 2 {
			t.Errorf("expected 2 pages, got %d", len(pages))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		spider := NewSpider(srv.Client(), WithDelay(0))
		if _, err := spider.Crawl(ctx, srv.URL); err == nil {
			t.Error("expected context error")
		}
	})

	t.Run("rejects non-http start URL", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(nil)
		if _, err := spider.Crawl(context.Background(), "file:///etc/passwd"); err == nil {
			t.Error("expected error for file URL")
		}
	})
}

func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	spider := NewSpider(nil,
		WithIgnorePatterns([]string{"**/*.pdf", "/private/**"}),
		WithFollowPatterns([]string{"/docs/**"}),
	)

	tests := []struct {
		url  string
		want bool
	}{
		{"http://docs.test/docs/intro", true},
		{"http://docs.test/docs/manual.pdf", false},
		{"http://docs.test/private/docs/x", false},
		{"http://docs.test/blog/post", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			if got := spider.shouldCrawl(tt.url); got != tt.want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	if normalizeURL("HTTP://Docs.Test#x") != normalizeURL("http://docs.test/") {
		t.Error("expected equivalent URLs to normalize equally")
	}
}
