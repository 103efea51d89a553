package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
)

type Metadata struct {
	Title    string
	Link     string
	Language string
}

// Parser is safe for concurrent use: gofeed parsers keep per-parse state, so
// a fresh one is built for every call.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Run(data []byte) (*Metadata, []RawEntry, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:    feed.Title,
		Link:     feed.Link,
		Language: feed.Language,
	}

	// The universal item drops RSS <source>, which is where aggregators such as
	// Google News put the publisher name.
	var rssSources map[string]string
	if feed.FeedType == "rss" {
		rssSources = p.rssSources(data)
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.toRawEntry(item, rssSources))
	}

	return metadata, entries, nil
}

func (p *Parser) toRawEntry(item *gofeed.Item, rssSources map[string]string) RawEntry {
	entry := RawEntry{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: cmp.Or(item.Description, item.Content),
		Published: Timestamp{
			Parsed: item.PublishedParsed,
			Raw:    item.Published,
		},
		Updated: Timestamp{
			Parsed: item.UpdatedParsed,
			Raw:    item.Updated,
		},
	}

	entry.SourceName = strings.TrimSpace(rssSources[entry.Link])
	if entry.SourceName == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Publisher) > 0 {
		entry.SourceName = strings.TrimSpace(item.DublinCoreExt.Publisher[0])
	}

	if item.Image != nil && item.Image.URL != "" {
		entry.MediaURL = item.Image.URL
	} else {
		for _, enclosure := range item.Enclosures {
			if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
				entry.MediaURL = enclosure.URL
				break
			}
		}
	}

	return entry
}

func (p *Parser) rssSources(data []byte) map[string]string {
	rssParser := &rss.Parser{}
	feed, err := rssParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	sources := make(map[string]string)
	for _, item := range feed.Items {
		if item == nil || item.Source == nil || item.Source.Title == "" {
			continue
		}
		sources[strings.TrimSpace(item.Link)] = item.Source.Title
	}
	return sources
}
