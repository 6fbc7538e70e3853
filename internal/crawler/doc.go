// Package crawler fetches remote documentation pages so they can be
// processed like local inputs.
//
// The Spider starts at one URL, fetches it over HTTP and, up to a configured
// depth, follows links that stay on the same host. Each HTML response
// becomes a model.Page whose BaseURL is the site root, so footnote lists
// can qualify root-relative links.
//
// # Usage
//
//	spider := crawler.NewSpider(http.DefaultClient, crawler.WithMaxDepth(1))
//	pages, err := spider.Crawl(ctx, "https://docs.example.com/guide/")
//
// # Politeness
//
//   - Requests to a site are spaced by a configurable delay
//   - The number of pages per crawl is bounded
//   - Response bodies are read up to a size limit
package crawler
