package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
)

// MaxLiveArticles caps the per-channel buffer accumulated in live mode.
const MaxLiveArticles = 500

// Context is the state of one user session: the SeenSet, the active filters,
// live mode and custom feeds. Every method is safe for concurrent use and
// mutations are serialized by one mutex.
type Context struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	mu            sync.Mutex
	seen          *feed.SeenSet
	criteria      feed.FilterCriteria
	lookback      time.Duration
	live          bool
	watched       []string
	lastFetch     map[string]time.Time
	liveBuffer    map[string][]feed.Article
	lastResult    map[string][]feed.Article
	customFeeds   []feed.Source
	alertKeywords []string
	touchedAt     time.Time
}

type State struct {
	ID            string               `json:"id"`
	Owner         string               `json:"owner"`
	CreatedAt     time.Time            `json:"created_at"`
	Live          bool                 `json:"live"`
	Watched       []string             `json:"watched_channels"`
	SeenCount     int                  `json:"seen_count"`
	Filters       Filters              `json:"filters"`
	CustomFeeds   []feed.Source        `json:"custom_feeds"`
	AlertKeywords []string             `json:"alert_keywords"`
	LastFetch     map[string]time.Time `json:"last_fetch,omitempty"`
}

func newContext(id, owner string, lookback time.Duration, now time.Time) *Context {
	return &Context{
		ID:         id,
		Owner:      owner,
		CreatedAt:  now,
		seen:       feed.NewSeenSet(),
		lookback:   lookback,
		lastFetch:  make(map[string]time.Time),
		liveBuffer: make(map[string][]feed.Article),
		lastResult: make(map[string][]feed.Article),
		touchedAt:  now,
	}
}

// Criteria returns the active filters with the lookback window resolved
// against now.
func (c *Context) Criteria(now time.Time) feed.FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteriaLocked(now)
}

func (c *Context) criteriaLocked(now time.Time) feed.FilterCriteria {
	criteria := c.criteria
	if criteria.Since == nil && c.lookback > 0 {
		since := now.Add(-c.lookback)
		criteria.Since = &since
	}
	return criteria
}

// ApplyFilters replaces the filters and lookback window and clears the SeenSet.
func (c *Context) ApplyFilters(criteria feed.FilterCriteria, lookback time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.criteria = criteria
	c.lookback = lookback
	c.resetLocked()
}

// ResetFilters drops every filter, keeping the lookback window, and clears
// the SeenSet.
func (c *Context) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.criteria = feed.FilterCriteria{}
	c.resetLocked()
}

// ManualRefresh clears the SeenSet so the next cycle shows everything again.
func (c *Context) ManualRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Context) StartLive(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.live = true
	c.watched = slices.Clone(channels)
	c.resetLocked()
}

// StopLive leaves live mode. The SeenSet is kept.
func (c *Context) StopLive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = false
}

func (c *Context) IsLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Context) Watched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.watched)
}

// BeginLiveFetch reports whether a live session may fetch channel now, and if
// so records now as the channel's last fetch. It always returns true outside
// live mode.
func (c *Context) BeginLiveFetch(channel string, now time.Time, interval time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return true
	}

	if last, ok := c.lastFetch[channel]; ok && now.Sub(last) < interval {
		return false
	}
	c.lastFetch[channel] = now
	return true
}

// Admit runs the filter engine against this session's SeenSet and criteria
// and marks the admitted links seen. In live mode an article is admitted only
// if it survives the merge into the channel's live buffer of at most limit
// articles; the rest stay unseen.
func (c *Context) Admit(filterer *feed.Filterer, channel string, articles []feed.Article, now time.Time, limit int) []feed.Article {
	c.mu.Lock()
	defer c.mu.Unlock()

	admitted := filterer.Select(articles, c.seen, c.criteriaLocked(now))
	if c.live {
		admitted = c.fitLiveBufferLocked(channel, admitted, limit)
	}

	for _, article := range admitted {
		c.seen.Add(article.Link)
	}
	return admitted
}

// Record stores the outcome of a cycle for export and, in live mode, prepends
// it to the channel's live buffer, which keeps at most limit articles
// (MaxLiveArticles when limit is not positive).
func (c *Context) Record(channel string, articles []feed.Article, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastResult[channel] = slices.Clone(articles)

	if !c.live {
		return
	}

	buffer := c.mergeLiveLocked(channel, articles)
	if limit = liveLimit(limit); len(buffer) > limit {
		buffer = buffer[:limit]
	}
	c.liveBuffer[channel] = buffer
}

// fitLiveBufferLocked drops the articles that would fall off the end of the
// live buffer as soon as they were merged into it.
func (c *Context) fitLiveBufferLocked(channel string, articles []feed.Article, limit int) []feed.Article {
	merged := c.mergeLiveLocked(channel, articles)
	limit = liveLimit(limit)
	if len(merged) <= limit {
		return articles
	}

	kept := make(map[string]struct{}, limit)
	for _, article := range merged[:limit] {
		kept[article.Link] = struct{}{}
	}
	return slices.DeleteFunc(slices.Clone(articles), func(article feed.Article) bool {
		_, ok := kept[article.Link]
		return !ok
	})
}

func (c *Context) mergeLiveLocked(channel string, articles []feed.Article) []feed.Article {
	merged := append(slices.Clone(articles), c.liveBuffer[channel]...)
	feed.SortByPublished(merged)
	return merged
}

func liveLimit(limit int) int {
	if limit <= 0 || limit > MaxLiveArticles {
		return MaxLiveArticles
	}
	return limit
}

func (c *Context) LiveArticles(channel string) []feed.Article {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.liveBuffer[channel])
}

func (c *Context) LastResult(channel string) []feed.Article {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live {
		return slices.Clone(c.liveBuffer[channel])
	}
	return slices.Clone(c.lastResult[channel])
}

func (c *Context) AddCustomFeed(source feed.Source) error {
	if err := feed.ValidateFeedURL(source.URL); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.ContainsFunc(c.customFeeds, func(s feed.Source) bool { return s.URL == source.URL }) {
		return fmt.Errorf("feed '%s' already added", source.URL)
	}
	c.customFeeds = append(c.customFeeds, source)
	return nil
}

func (c *Context) RemoveCustomFeed(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.customFeeds)
	c.customFeeds = slices.DeleteFunc(c.customFeeds, func(s feed.Source) bool { return s.URL == url })
	return len(c.customFeeds) != before
}

func (c *Context) CustomFeeds() []feed.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.customFeeds)
}

func (c *Context) SetAlertKeywords(keywords []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertKeywords = slices.Clone(keywords)
}

func (c *Context) AlertKeywords() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.alertKeywords)
}

func (c *Context) SeenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen.Len()
}

func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	lastFetch := make(map[string]time.Time, len(c.lastFetch))
	for channel, t := range c.lastFetch {
		lastFetch[channel] = t
	}

	return State{
		ID:            c.ID,
		Owner:         c.Owner,
		CreatedAt:     c.CreatedAt,
		Live:          c.live,
		Watched:       slices.Clone(c.watched),
		SeenCount:     c.seen.Len(),
		Filters:       FiltersFromCriteria(c.criteria, c.lookback),
		CustomFeeds:   slices.Clone(c.customFeeds),
		AlertKeywords: slices.Clone(c.alertKeywords),
		LastFetch:     lastFetch,
	}
}

func (c *Context) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchedAt = now
}

func (c *Context) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touchedAt
}

// resetLocked must be called with mu held.
func (c *Context) resetLocked() {
	c.seen.Clear()
	clear(c.lastFetch)
	clear(c.liveBuffer)
}
