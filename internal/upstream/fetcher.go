// Package upstream fetches the externally ranked list from the ranking service.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxPageBytes bounds a single page body.
const maxPageBytes = 32 << 20

// Browser-like headers expected by the ranking service.
const (
	headerOrigin    = "https://farcaster.xyz"
	headerReferer   = "https://farcaster.xyz/"
	headerUserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

// Fetcher walks the cursor-paginated ranking endpoint.
type Fetcher struct {
	client   *http.Client
	endpoint string
	limit    int
	token    string
	maxPages int
	limiter  *rate.Limiter
	log      logrus.FieldLogger
	onPage   func(page, entries int)
}

var _ contract.RankFetcher = &Fetcher{} // Compile-time check

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger used for per-page debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Fetcher) { f.log = log }
}

// WithPageHook registers a callback invoked after each page is parsed.
func WithPageHook(fn func(page, entries int)) Option {
	return func(f *Fetcher) { f.onPage = fn }
}

// NewFetcher creates a Fetcher from the validated configuration.
func NewFetcher(cfg *contract.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		endpoint: cfg.Endpoint,
		limit:    cfg.PageLimit,
		token:    cfg.APIToken,
		maxPages: cfg.MaxPages,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestRate), 1),
		log:      contract.DiscardLogger(),
		onPage:   func(int, int) {},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll follows the cursor until the service stops returning one. Any failure
// discards everything fetched so far.
func (f *Fetcher) FetchAll(ctx context.Context) ([]schema.RankEntry, error) {
	var all []schema.RankEntry
	cursor := ""
	for page := 1; ; page++ {
		if page > f.maxPages {
			return nil, &contract.UpstreamError{
				Op:  "pagination",
				URL: f.endpoint,
				Err: fmt.Errorf("cursor still present after %d pages", f.maxPages),
			}
		}
		op := "fetch page " + strconv.Itoa(page)
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &contract.UpstreamError{Op: op, URL: f.endpoint, Err: err}
		}

		pageURL, err := f.pageURL(cursor)
		if err != nil {
			return nil, &contract.UpstreamError{Op: op, URL: f.endpoint, Err: err}
		}
		body, err := f.get(ctx, op, pageURL)
		if err != nil {
			return nil, err
		}

		entries, next, err := ParsePage(body)
		if err != nil {
			return nil, &contract.UpstreamError{Op: "decode page " + strconv.Itoa(page), URL: pageURL, Err: err}
		}
		all = append(all, entries...)
		f.onPage(page, len(entries))
		f.log.WithFields(logrus.Fields{"page": page, "entries": len(entries), "has_next": next != ""}).Debug("fetched ranking page")

		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// pageURL appends limit and cursor to the endpoint, keeping its existing query.
func (f *Fetcher) pageURL(cursor string) (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(f.limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) get(ctx context.Context, op, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &contract.UpstreamError{Op: op, URL: pageURL, Err: err}
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", headerOrigin)
	req.Header.Set("Referer", headerReferer)
	req.Header.Set("User-Agent", headerUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &contract.UpstreamError{Op: op, URL: pageURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &contract.UpstreamError{Op: op, URL: pageURL, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &contract.UpstreamError{Op: op, URL: pageURL, Err: err}
	}
	return body, nil
}
