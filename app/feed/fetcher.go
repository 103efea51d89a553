package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/newsdesk/app/cache"
)

const maxFeedSize = 10 << 20

type FetchResult struct {
	Source    Source
	Metadata  *Metadata
	Entries   []RawEntry
	Err       error
	FromCache bool
}

func (r FetchResult) OK() bool {
	return r.Err == nil
}

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	cache      cache.Cache
	cacheTTL   time.Duration
	userAgent  string
	workers    int
}

func NewFetcher(httpClient *http.Client, parser *Parser, feedCache cache.Cache, cacheTTL time.Duration, userAgent string, workers int) *Fetcher {
	if workers <= 0 {
		workers = 1
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		cache:      feedCache,
		cacheTTL:   cacheTTL,
		userAgent:  userAgent,
		workers:    workers,
	}
}

// Fetch retrieves and parses one feed. Network, timeout and parse failures
// are reported through FetchResult.Err and never returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, source Source, timeout time.Duration) FetchResult {
	result := FetchResult{Source: source}

	data, fromCache, err := f.load(ctx, source.URL, timeout)
	if err != nil {
		slog.Warn("Feed fetch failed", "url", source.URL, "error", err)
		result.Err = err
		return result
	}

	metadata, entries, err := f.parser.Run(data)
	if err != nil {
		slog.Warn("Feed parse failed", "url", source.URL, "error", err)
		result.Err = err
		return result
	}

	if !fromCache && f.cache != nil {
		if err := f.cache.Set(ctx, cache.FeedKey(source.URL), data, f.cacheTTL); err != nil {
			slog.Warn("Failed to cache feed", "url", source.URL, "error", err)
		}
	}

	result.Metadata = metadata
	result.Entries = entries
	result.FromCache = fromCache

	slog.Debug("Feed fetched", "url", source.URL, "entries", len(entries), "cached", fromCache)
	return result
}

// FetchAll fetches every source with at most f.workers requests in flight.
// Results keep the order of sources; a failed source never cancels the rest.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source, timeout time.Duration) []FetchResult {
	results := make([]FetchResult, len(sources))

	var g errgroup.Group
	g.SetLimit(f.workers)

	for i, source := range sources {
		g.Go(func() error {
			results[i] = f.Fetch(ctx, source, timeout)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *Fetcher) load(ctx context.Context, url string, timeout time.Duration) ([]byte, bool, error) {
	if f.cache != nil {
		data, ok, err := f.cache.Get(ctx, cache.FeedKey(url))
		if err != nil {
			slog.Warn("Feed cache lookup failed", "url", url, "error", err)
		} else if ok {
			return data, true, nil
		}
	}

	data, err := f.download(ctx, url, timeout)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func (f *Fetcher) download(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
