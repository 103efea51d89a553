package session

import (
	"testing"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testArticles() []feed.Article {
	return []feed.Article{
		{Link: "https://example.com/1", Title: "Market Growth Surge", PublishedAt: testNow.Add(-time.Hour)},
		{Link: "https://example.com/2", Title: "Government Election Crisis", PublishedAt: testNow.Add(-3 * time.Hour)},
	}
}

func TestAdmitMarksSeen(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)
	filterer := feed.NewFilterer()

	first := ctx.Admit(filterer, "global", testArticles(), testNow, 0)
	second := ctx.Admit(filterer, "global", testArticles(), testNow, 0)

	if len(first) != 2 {
		t.Errorf("Expected 2 articles, got %d", len(first))
	}
	if len(second) != 0 {
		t.Errorf("Expected no repeats, got %d", len(second))
	}
	if ctx.SeenCount() != 2 {
		t.Errorf("Expected 2 seen links, got %d", ctx.SeenCount())
	}
}

func TestModeChangesClearSeen(t *testing.T) {
	filterer := feed.NewFilterer()

	actions := map[string]func(*Context){
		"apply":   func(c *Context) { c.ApplyFilters(feed.FilterCriteria{}, 0) },
		"reset":   func(c *Context) { c.ResetFilters() },
		"refresh": func(c *Context) { c.ManualRefresh() },
		"live":    func(c *Context) { c.StartLive([]string{"global"}) },
	}

	for name, action := range actions {
		ctx := newContext("id", "owner", 0, testNow)
		ctx.Admit(filterer, "global", testArticles(), testNow, 0)

		action(ctx)

		if ctx.SeenCount() != 0 {
			t.Errorf("%s: expected seen set to be cleared, got %d", name, ctx.SeenCount())
		}
		if len(ctx.Admit(filterer, "global", testArticles(), testNow, 0)) != 2 {
			t.Errorf("%s: expected articles to be shown again", name)
		}
	}
}

func TestStopLiveKeepsSeen(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)
	ctx.StartLive([]string{"global"})
	ctx.Admit(feed.NewFilterer(), "global", testArticles(), testNow, 0)

	ctx.StopLive()

	if ctx.IsLive() {
		t.Error("Expected live mode to be off")
	}
	if ctx.SeenCount() != 2 {
		t.Errorf("Expected seen set to survive, got %d", ctx.SeenCount())
	}
}

func TestCriteriaResolvesLookback(t *testing.T) {
	ctx := newContext("id", "owner", 2*time.Hour, testNow)

	criteria := ctx.Criteria(testNow)
	if criteria.Since == nil {
		t.Fatal("Expected lookback to produce a Since bound")
	}
	if !criteria.Since.Equal(testNow.Add(-2 * time.Hour)) {
		t.Errorf("Unexpected Since %v", criteria.Since)
	}

	admitted := ctx.Admit(feed.NewFilterer(), "global", testArticles(), testNow, 0)
	if len(admitted) != 1 || admitted[0].Link != "https://example.com/1" {
		t.Errorf("Expected only the article inside the window, got %d", len(admitted))
	}
}

func TestBeginLiveFetch(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)

	if !ctx.BeginLiveFetch("global", testNow, time.Minute) || !ctx.BeginLiveFetch("global", testNow, time.Minute) {
		t.Error("Expected fetches to always be allowed outside live mode")
	}

	ctx.StartLive([]string{"global"})

	if !ctx.BeginLiveFetch("global", testNow, time.Minute) {
		t.Error("Expected first live fetch to be allowed")
	}
	if ctx.BeginLiveFetch("global", testNow.Add(30*time.Second), time.Minute) {
		t.Error("Expected fetch within the interval to be throttled")
	}
	if !ctx.BeginLiveFetch("markets", testNow.Add(30*time.Second), time.Minute) {
		t.Error("Expected channels to be throttled independently")
	}
	if !ctx.BeginLiveFetch("global", testNow.Add(time.Minute), time.Minute) {
		t.Error("Expected fetch after the interval to be allowed")
	}
}

func TestRecordLiveBuffer(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)
	ctx.StartLive([]string{"global"})

	older := []feed.Article{{Link: "a", PublishedAt: testNow.Add(-2 * time.Hour)}}
	newer := []feed.Article{
		{Link: "b", PublishedAt: testNow.Add(-time.Hour)},
		{Link: "c", PublishedAt: testNow},
	}

	ctx.Record("global", older, 0)
	ctx.Record("global", newer, 2)

	buffer := ctx.LiveArticles("global")
	if len(buffer) != 2 {
		t.Fatalf("Expected buffer capped at 2, got %d", len(buffer))
	}
	if buffer[0].Link != "c" || buffer[1].Link != "b" {
		t.Errorf("Expected newest first, got %s, %s", buffer[0].Link, buffer[1].Link)
	}

	if len(ctx.LastResult("global")) != 2 {
		t.Error("Expected last result to return the live buffer")
	}
}

func TestAdmitLiveOnlyMarksBufferedArticles(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)
	ctx.StartLive([]string{"global"})
	filterer := feed.NewFilterer()

	shown := []feed.Article{
		{Link: "a", PublishedAt: testNow.Add(-time.Minute)},
		{Link: "b", PublishedAt: testNow.Add(-2 * time.Minute)},
	}
	ctx.Record("global", ctx.Admit(filterer, "global", shown, testNow, 2), 2)

	late := []feed.Article{
		{Link: "c", PublishedAt: testNow},
		{Link: "d", PublishedAt: testNow.Add(-time.Hour)},
	}
	admitted := ctx.Admit(filterer, "global", late, testNow, 2)
	ctx.Record("global", admitted, 2)

	if len(admitted) != 1 || admitted[0].Link != "c" {
		t.Fatalf("Expected only the article that fits the buffer to be admitted, got %v", admitted)
	}

	for _, article := range ctx.LiveArticles("global") {
		if article.Link == "d" {
			t.Error("Expected the evicted article not to be in the live buffer")
		}
	}

	if ctx.SeenCount() != 3 {
		t.Errorf("Expected 3 seen links, got %d", ctx.SeenCount())
	}

	// once the buffer is emptied by a restart the skipped article can be shown
	ctx.StartLive([]string{"global"})
	if len(ctx.Admit(filterer, "global", late, testNow, 2)) != 2 {
		t.Error("Expected skipped article to be admitted after a restart")
	}
}

func TestRecordOutsideLiveMode(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)

	ctx.Record("global", testArticles(), 0)

	if len(ctx.LiveArticles("global")) != 0 {
		t.Error("Expected no live buffer outside live mode")
	}
	if len(ctx.LastResult("global")) != 2 {
		t.Errorf("Expected last result to be kept, got %d", len(ctx.LastResult("global")))
	}
}

func TestCustomFeeds(t *testing.T) {
	ctx := newContext("id", "owner", 0, testNow)

	if err := ctx.AddCustomFeed(feed.Source{URL: "https://example.com/rss"}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.AddCustomFeed(feed.Source{URL: "https://example.com/rss"}); err == nil {
		t.Error("Expected duplicate feed to be rejected")
	}
	if err := ctx.AddCustomFeed(feed.Source{URL: "file:///etc/passwd"}); err == nil {
		t.Error("Expected non-http feed to be rejected")
	}

	if len(ctx.CustomFeeds()) != 1 {
		t.Errorf("Expected 1 custom feed, got %d", len(ctx.CustomFeeds()))
	}
	if !ctx.RemoveCustomFeed("https://example.com/rss") {
		t.Error("Expected feed to be removed")
	}
	if ctx.RemoveCustomFeed("https://example.com/rss") {
		t.Error("Expected second removal to report false")
	}
}

func TestSnapshot(t *testing.T) {
	ctx := newContext("id", "owner", 30*time.Minute, testNow)
	day := feed.Day{Year: 2024, Month: time.March, Day: 10}
	ctx.ApplyFilters(feed.FilterCriteria{SearchQuery: "rbi", Date: &day}, 30*time.Minute)
	ctx.SetAlertKeywords([]string{"rbi"})

	state := ctx.Snapshot()

	if state.Filters.Search != "rbi" || state.Filters.Date != "2024-03-10" {
		t.Errorf("Unexpected filters %+v", state.Filters)
	}
	if state.Filters.LookbackMinutes != 30 {
		t.Errorf("Expected lookback 30, got %d", state.Filters.LookbackMinutes)
	}
	if len(state.AlertKeywords) != 1 {
		t.Errorf("Expected 1 alert keyword, got %d", len(state.AlertKeywords))
	}
}
