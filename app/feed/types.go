package feed

import (
	"fmt"
	"time"
)

// Feed ingestion types

type Source struct {
	URL  string `yaml:"url" json:"url"`
	Name string `yaml:"name" json:"name,omitempty"`
}

// Timestamp is one optional time field of a feed entry: the value the feed
// parser managed to read, and the raw text for a second attempt.
type Timestamp struct {
	Parsed *time.Time
	Raw    string
}

type RawEntry struct {
	Title      string
	Link       string
	Summary    string // may contain HTML
	SourceName string // explicit publisher, e.g. RSS <source> or dc:publisher
	Published  Timestamp
	Updated    Timestamp
	MediaURL   string
}

type Article struct {
	Link        string       `json:"link"`
	Title       string       `json:"title"`
	PublishedAt time.Time    `json:"published_at"`
	Summary     string       `json:"summary,omitempty"`
	Source      string       `json:"source"`
	Category    Category     `json:"category"`
	Sentiment   Sentiment    `json:"sentiment"`
	Freshness   FreshnessTag `json:"freshness"`
	Age         string       `json:"age"`
	ImageURL    string       `json:"image_url,omitempty"`
	Channel     string       `json:"channel,omitempty"`
	Alert       bool         `json:"alert,omitempty"`
}

type Category string

const (
	CategoryPolitics      Category = "Politics"
	CategoryTechnology    Category = "Technology"
	CategoryBusiness      Category = "Business"
	CategorySports        Category = "Sports"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryScience       Category = "Science"
	CategoryGeneral       Category = "General"
)

// Categories lists every category in classification priority order, General last.
var Categories = []Category{
	CategoryPolitics,
	CategoryTechnology,
	CategoryBusiness,
	CategorySports,
	CategoryEntertainment,
	CategoryHealth,
	CategoryScience,
	CategoryGeneral,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category '%s'", s)
}

type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

type FreshnessTag string

const (
	FreshnessFuture FreshnessTag = "FUTURE"
	FreshnessLive   FreshnessTag = "LIVE"
	FreshnessRecent FreshnessTag = "RECENT"
	FreshnessToday  FreshnessTag = "TODAY"
	FreshnessOlder  FreshnessTag = "OLDER"
)

// Day is a calendar date in the display timezone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date '%s': %w", s, err)
	}
	return DayOf(t), nil
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FilterCriteria holds the independently toggleable filters of a session.
// Zero-valued fields impose no constraint.
type FilterCriteria struct {
	SearchQuery     string
	Date            *Day
	Since           *time.Time // lookback window lower bound
	Categories      []Category
	Sources         []string
	ExcludeKeywords []string
}

func (c FilterCriteria) IsEmpty() bool {
	return c.SearchQuery == "" && c.Date == nil && c.Since == nil &&
		len(c.Categories) == 0 && len(c.Sources) == 0 && len(c.ExcludeKeywords) == 0
}

// Channel configuration types

type Channel struct {
	Name     string          // Derived from filename (without .yml extension)
	Title    string          `yaml:"title"`
	Feeds    []Source        `yaml:"feeds"`
	Settings ChannelSettings `yaml:"settings"`
}

type ChannelSettings struct {
	Enabled  bool `yaml:"enabled"`
	Timeout  int  `yaml:"timeout"` // seconds
	MaxItems int  `yaml:"max_items"`
	Warm     bool `yaml:"warm"` // prefetch into the cache on every scheduler tick
}

func (s ChannelSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}
