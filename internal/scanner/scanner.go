// Package scanner fetches a site's homepage and extracts title,
// description, favicon, and a heuristic category.
package scanner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"waps/api/internal/util"
)

const userAgent = "WapsBot/1.0 (+https://waps.app)"

// maxHTMLBytes caps how much of a homepage is read; metadata lives in
// the head and the category heuristic only looks at the first 4KB.
const maxHTMLBytes = 1 << 20

// Result is the scanned metadata for a website. Every field is always
// populated: scans never fail, they fall back to hostname-derived
// defaults.
type Result struct {
	CanonicalURL string
	Origin       string
	Slug         string
	Title        string
	Description  string
	Category     string
	FaviconURL   string
	OgImageURL   string
}

// fetcher retrieves rendered homepage HTML.
type fetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

type Scanner struct {
	client  *http.Client
	browser fetcher
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithBrowser routes fetches through a headless browser so JS-rendered
// pages yield real markup. The plain HTTP client remains the fallback.
func WithBrowser(b fetcher) Option {
	return func(s *Scanner) {
		s.browser = b
	}
}

func New(timeout time.Duration, opts ...Option) *Scanner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Scanner{
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRe    = regexp.MustCompile(`(?i)<meta[^>]+name=["']description["'][^>]*content=["']([^"']+)["']`)
	ogDescRe  = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:description["'][^>]*content=["']([^"']+)["']`)
	ogImageRe = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]*content=["']([^"']+)["']`)
	iconTagRe = regexp.MustCompile(`(?i)<link[^>]+rel=["'](?:shortcut\s+icon|icon|apple-touch-icon)["'][^>]*>`)
	hrefRe    = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)
)

// First match wins; "Tools" when nothing matches.
var categoryRules = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Design", regexp.MustCompile(`\bfigma|design|palette|color|font\b`)},
	{"Productivity", regexp.MustCompile(`\bnotion|todo|task|note|kanban|linear|jira|trello|airtable\b`)},
	{"Dev & Infra", regexp.MustCompile(`\bvercel|github|deploy|code|api|redis|kafka|infra|devops\b`)},
	{"Reading", regexp.MustCompile(`\bread|article|blog|medium|pocket|readwise\b`)},
	{"Education", regexp.MustCompile(`\bcourse|learn|duolingo|coursera|udemy\b`)},
	{"Music & Audio", regexp.MustCompile(`\bmusic|podcast|spotify|audio\b`)},
	{"Video", regexp.MustCompile(`\bvideo|youtube|stream\b`)},
}

// Scan canonicalizes rawURL to its homepage, fetches it, and extracts
// metadata. Fetch and extraction failures degrade to defaults; the only
// error is an unparseable URL.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (Result, error) {
	canonicalURL, origin, err := util.CanonicalizeURL(rawURL)
	if err != nil {
		return Result{}, err
	}

	html := s.fetch(ctx, canonicalURL)

	title, description, faviconURL := extractFromHTML(html, canonicalURL)
	if title == "" {
		title = origin
	}
	if description == "" {
		description = fmt.Sprintf("“%s” is a website you can explore for more details and features.", title)
	}

	return Result{
		CanonicalURL: canonicalURL,
		Origin:       origin,
		Slug:         util.Slugify(title),
		Title:        title,
		Description:  description,
		Category:     heuristicCategory(title, html),
		FaviconURL:   faviconURL,
		OgImageURL:   OgImage(html, canonicalURL),
	}, nil
}

// OgImage extracts an og:image URL from already-fetched HTML, resolved
// against the page URL. Empty when the page declares none.
func OgImage(html, pageURL string) string {
	match := ogImageRe.FindStringSubmatch(html)
	if match == nil {
		return ""
	}
	return resolveURL(match[1], pageURL)
}

// fetch returns the homepage HTML, or "" when the site is unreachable.
func (s *Scanner) fetch(ctx context.Context, pageURL string) string {
	if s.browser != nil {
		html, err := s.browser.FetchHTML(ctx, pageURL)
		if err == nil {
			return html
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return ""
	}
	return string(body)
}

func extractFromHTML(html, baseURL string) (title, description, faviconURL string) {
	if match := titleRe.FindStringSubmatch(html); match != nil {
		title = strings.TrimSpace(match[1])
	}

	if match := metaRe.FindStringSubmatch(html); match != nil {
		description = match[1]
	} else if match := ogDescRe.FindStringSubmatch(html); match != nil {
		description = match[1]
	}

	if iconTag := iconTagRe.FindString(html); iconTag != "" {
		if match := hrefRe.FindStringSubmatch(iconTag); match != nil {
			faviconURL = resolveURL(match[1], baseURL)
		}
	}
	if faviconURL == "" {
		host := ""
		if u, err := url.Parse(baseURL); err == nil {
			host = u.Hostname()
		}
		faviconURL = "https://www.google.com/s2/favicons?sz=64&domain=" + host
	}

	return title, description, faviconURL
}

func heuristicCategory(title, html string) string {
	body := html
	if len(body) > 4000 {
		body = body[:4000]
	}
	haystack := strings.ToLower(title + " " + body)
	for _, rule := range categoryRules {
		if rule.re.MatchString(haystack) {
			return rule.name
		}
	}
	return "Tools"
}

func resolveURL(href, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return href
	}
	return resolved.String()
}
