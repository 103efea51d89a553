package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
	"github.com/lysyi3m/newsdesk/app/session"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
	StatusNotDue      Status = "not_due"
)

// RenderModel is everything a client needs to draw one channel.
type RenderModel struct {
	Channel         string                 `json:"channel"`
	Title           string                 `json:"title"`
	Status          Status                 `json:"status"`
	Message         string                 `json:"message"`
	Live            bool                   `json:"live"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Total           int                    `json:"total"`
	Articles        []feed.Article         `json:"articles"`
	CategoryCounts  map[feed.Category]int  `json:"category_counts"`
	SentimentCounts map[feed.Sentiment]int `json:"sentiment_counts"`
	Alerts          int                    `json:"alerts"`
	FailedSources   []string               `json:"failed_sources,omitempty"`
}

type ChannelSource interface {
	GetChannel(name string) (*feed.Channel, error)
}

type Fetcher interface {
	FetchAll(ctx context.Context, sources []feed.Source, timeout time.Duration) []feed.FetchResult
}

var (
	_ ChannelSource = (*feed.ChannelCache)(nil)
	_ Fetcher       = (*feed.Fetcher)(nil)
)

type Pipeline struct {
	channels        ChannelSource
	fetcher         Fetcher
	normalizer      *feed.Normalizer
	classifier      *feed.Classifier
	filterer        *feed.Filterer
	refreshInterval time.Duration
	now             func() time.Time
}

func New(channels ChannelSource, fetcher Fetcher, normalizer *feed.Normalizer,
	classifier *feed.Classifier, filterer *feed.Filterer, refreshInterval time.Duration) *Pipeline {
	return &Pipeline{
		channels:        channels,
		fetcher:         fetcher,
		normalizer:      normalizer,
		classifier:      classifier,
		filterer:        filterer,
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
}

// Refresh runs one cycle for a session and channel: fetch, normalize,
// classify, filter against the session's SeenSet, tag freshness and sort.
// In live mode a channel fetched less than refreshInterval ago is not
// fetched again; the accumulated live articles are returned instead.
func (p *Pipeline) Refresh(ctx context.Context, sess *session.Context, channelName string) (RenderModel, error) {
	channel, err := p.resolveChannel(sess, channelName)
	if err != nil {
		return RenderModel{}, err
	}

	now := p.now().In(p.normalizer.Location())
	alerts := sess.AlertKeywords()

	if !sess.BeginLiveFetch(channel.Name, now, p.refreshInterval) {
		articles := stamp(sess.LiveArticles(channel.Name), now, alerts)
		model := p.render(channel, articles, now, true)
		model.Status = StatusNotDue
		model.Message = "Showing live articles; next refresh is not due yet"
		return model, nil
	}

	results := p.fetcher.FetchAll(ctx, channel.Feeds, channel.Settings.GetTimeout())
	candidates, failed := p.collect(channel, results)

	admitted := sess.Admit(p.filterer, channel.Name, candidates, now, channel.Settings.MaxItems)
	admitted = stamp(admitted, now, alerts)
	feed.SortByPublished(admitted)

	sess.Record(channel.Name, admitted, channel.Settings.MaxItems)

	live := sess.IsLive()
	articles := admitted
	if live {
		articles = stamp(sess.LiveArticles(channel.Name), now, alerts)
	}

	model := p.render(channel, articles, now, live)
	model.FailedSources = failed

	switch {
	case len(channel.Feeds) > 0 && len(failed) == len(channel.Feeds):
		model.Status = StatusUnavailable
		model.Message = "Feed temporarily unavailable"
	case len(articles) == 0:
		model.Status = StatusEmpty
		if sess.Criteria(now).IsEmpty() {
			model.Message = "No new articles at the moment. Check back soon!"
		} else {
			model.Message = "No articles match your filters. Try adjusting search terms or date."
		}
	default:
		model.Status = StatusOK
		model.Message = fmt.Sprintf("Found %d articles", len(articles))
	}

	slog.Info("Refresh completed",
		"session", sess.ID,
		"channel", channel.Name,
		"sources", len(channel.Feeds),
		"failed", len(failed),
		"candidates", len(candidates),
		"new", len(admitted),
		"live", live)

	return model, nil
}

func (p *Pipeline) resolveChannel(sess *session.Context, channelName string) (*feed.Channel, error) {
	if channelName == feed.CustomChannel {
		return &feed.Channel{
			Name:     feed.CustomChannel,
			Title:    "Custom",
			Feeds:    sess.CustomFeeds(),
			Settings: feed.ChannelSettings{Enabled: true},
		}, nil
	}
	return p.channels.GetChannel(channelName)
}

// collect normalizes and classifies every entry of the successful fetches,
// in discovery order, and lists the sources that failed.
func (p *Pipeline) collect(channel *feed.Channel, results []feed.FetchResult) ([]feed.Article, []string) {
	var articles []feed.Article
	var failed []string
	dropped := 0

	for _, result := range results {
		if !result.OK() {
			failed = append(failed, result.Source.URL)
			continue
		}

		for _, entry := range result.Entries {
			article, ok := p.normalizer.Normalize(entry, result.Source)
			if !ok {
				dropped++
				continue
			}
			article.Channel = channel.Name
			p.classifier.Enrich(&article)
			articles = append(articles, article)
		}
	}

	if dropped > 0 {
		slog.Debug("Entries without timestamp dropped", "channel", channel.Name, "count", dropped)
	}

	return articles, failed
}

func (p *Pipeline) render(channel *feed.Channel, articles []feed.Article, now time.Time, live bool) RenderModel {
	if articles == nil {
		articles = []feed.Article{}
	}

	sentiments := make(map[feed.Sentiment]int)
	alerts := 0
	for _, article := range articles {
		sentiments[article.Sentiment]++
		if article.Alert {
			alerts++
		}
	}

	return RenderModel{
		Channel:         channel.Name,
		Title:           channel.Title,
		Live:            live,
		GeneratedAt:     now,
		Total:           len(articles),
		Articles:        articles,
		CategoryCounts:  feed.CountByCategory(articles),
		SentimentCounts: sentiments,
		Alerts:          alerts,
	}
}

// stamp sets freshness and alert flags relative to now.
func stamp(articles []feed.Article, now time.Time, alertKeywords []string) []feed.Article {
	for i := range articles {
		articles[i].Freshness, articles[i].Age = feed.Freshness(articles[i].PublishedAt, now)
		articles[i].Alert = len(alertKeywords) > 0 &&
			feed.MatchesAny(articles[i].Title+" "+articles[i].Summary, alertKeywords)
	}
	return articles
}
