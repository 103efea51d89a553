package database

import (
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
)

// Bookmark is an article saved by an owner. It outlives sessions and their
// SeenSets.
type Bookmark struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Link        string    `json:"link"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Sentiment   string    `json:"sentiment"`
	PublishedAt time.Time `json:"published_at"`
	Note        string    `json:"note"`
	SavedAt     time.Time `json:"saved_at"`

	// Readable article text, filled in by the background extractor
	Content          string    `json:"content,omitempty"`
	ExtractionStatus string    `json:"extraction_status"`
	ExtractedAt      time.Time `json:"extracted_at"`
	ExtractionError  string    `json:"extraction_error,omitempty"`
}

const (
	ExtractionPending = "pending"
	ExtractionSuccess = "success"
	ExtractionFailed  = "failed"
)

type BookmarkFilter struct {
	Category string
	Search   string // matched against title and note
	Limit    int
	Offset   int
}

func BookmarkFromArticle(owner string, article feed.Article, note string) Bookmark {
	return Bookmark{
		Owner:       owner,
		Link:        article.Link,
		Title:       article.Title,
		Source:      article.Source,
		Category:    string(article.Category),
		Sentiment:   string(article.Sentiment),
		PublishedAt: article.PublishedAt,
		Note:        note,
	}
}

// ExportRecord renders the bookmark in the article export format.
func (b Bookmark) ExportRecord(loc *time.Location) feed.ExportRecord {
	published := b.PublishedAt
	if loc != nil {
		published = published.In(loc)
	}
	return feed.ExportRecord{
		Title:     b.Title,
		Source:    b.Source,
		Category:  b.Category,
		Sentiment: b.Sentiment,
		Time:      published.Format(feed.ExportTimeLayout),
		Link:      b.Link,
	}
}
