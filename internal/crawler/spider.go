package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nao1215/codeflip/internal/model"
)

// Default Spider settings.
const (
	// DefaultMaxPages bounds the pages fetched by one crawl.
	DefaultMaxPages = 100

	// DefaultDelay is the pause between requests.
	DefaultDelay = 500 * time.Millisecond

	// DefaultMaxBodySize limits the bytes read from one response.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultUserAgent identifies the tool to servers.
	DefaultUserAgent = "codeflip (+https://github.com/nao1215/codeflip)"
)

// Spider fetches pages from one site.
type Spider struct {
	// client performs the requests.
	client *http.Client

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages fetched.
	maxPages int

	// delay is the time to wait between requests.
	delay time.Duration

	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// ignorePatterns are URL path globs to skip.
	ignorePatterns []string

	// followPatterns, when set, restrict crawling to matching URL paths.
	followPatterns []string

	logger *slog.Logger

	// visited tracks URLs already queued.
	visited map[string]bool

	// mutex protects visited and pageCount.
	mutex sync.Mutex

	// pageCount tracks pages fetched.
	pageCount int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithIgnorePatterns sets URL path globs to skip, for example
// "/api/**" or "**/*.pdf".
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to URL paths matching at least
// one glob. The starting URL is always fetched.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given HTTP client.
// A nil client uses http.DefaultClient.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Spider{
		client:      client,
		maxPages:    DefaultMaxPages,
		delay:       DefaultDelay,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// Crawl fetches startURL and, within the depth limit, the same-host pages
// it links to, in breadth-first order. Pages that fail to load or are not
// HTML are logged and skipped. On cancellation the pages fetched so far are
// returned with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]*model.Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("invalid start URL %q: scheme must be http or https", startURL)
	}
	if start.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q: missing host", startURL)
	}

	var pages []*model.Page
	queue := []queueItem{{url: start.String(), depth: 0}}
	s.markVisited(start.String())

	for len(queue) > 0 && s.pageCount < s.maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		item := queue[0]
		queue = queue[1:]

		pg, links, err := s.fetchPage(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			s.logger.Warn("skipping page", "url", item.url, "error", err)
		} else {
			pages = append(pages, pg)
			s.mutex.Lock()
			s.pageCount++
			s.mutex.Unlock()
		}

		if item.depth < s.maxDepth {
			for _, link := range links {
				if s.isSameSite(start.Host, link) && s.shouldCrawl(link) && !s.isVisited(link) {
					s.markVisited(link)
					queue = append(queue, queueItem{url: link, depth: item.depth + 1})
				}
			}
		}

		if s.delay > 0 && len(queue) > 0 && s.pageCount < s.maxPages {
			select {
			case <-ctx.Done():
				return pages, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return pages, nil
}

// fetchPage fetches one page, parses it and returns its internal links.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "text/html" {
			return nil, nil, fmt.Errorf("not an HTML page: %s", ct)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, nil, err
	}

	// Redirects change the URL links are resolved against.
	final := resp.Request.URL
	parser := &Parser{baseURL: final}
	result, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}

	pg := model.NewPage(PagePath(final), model.FormatHTML, body)
	pg.Doc = result.Doc
	pg.BaseURL = &url.URL{Scheme: final.Scheme, Host: final.Host, Path: "/"}

	s.logger.Debug("fetched page", "url", final.String(), "title", result.Title, "links", len(result.InternalLinks))
	return pg, result.InternalLinks, nil
}

// PagePath maps a URL to a slash-separated output path under a directory
// named after the host: directory URLs get index.html and extensionless
// paths get .html.
func PagePath(u *url.URL) string {
	p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	switch {
	case p == "" || strings.HasSuffix(u.Path, "/"):
		p = path.Join(p, "index.html")
	case path.Ext(p) == "":
		p += ".html"
	}
	return path.Join(strings.ToLower(u.Host), p)
}

// isVisited checks if a URL has been queued.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[normalizeURL(pageURL)]
}

// markVisited marks a URL as queued.
func (s *Spider) markVisited(pageURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[normalizeURL(pageURL)] = true
}

// normalizeURL normalizes a URL for deduplication: the fragment is
// dropped, scheme and host are lowercased and an empty path becomes "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// isSameSite checks if targetURL is on baseHost.
func (s *Spider) isSameSite(baseHost, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, baseHost)
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesFetched: s.pageCount,
		URLsQueued:   len(s.visited),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesFetched is the number of pages successfully fetched.
	PagesFetched int

	// URLsQueued is the number of unique URLs queued.
	URLsQueued int
}

// shouldCrawl applies the ignore and follow patterns to the URL path.
// Ignore patterns win over follow patterns.
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	if matchAny(s.ignorePatterns, p) {
		return false
	}
	if len(s.followPatterns) > 0 {
		return matchAny(s.followPatterns, p)
	}
	return true
}

// matchAny reports whether the URL path p matches one of patterns.
// Patterns without a leading slash also match relative to the root.
func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, p); err == nil && ok {
			return true
		}
		if !strings.HasPrefix(pattern, "/") {
			if ok, err := doublestar.Match(pattern, strings.TrimPrefix(p, "/")); err == nil && ok {
				return true
			}
		}
	}
	return false
}
