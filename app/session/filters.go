package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
)

// Filters is the wire form of a session's filter selection.
type Filters struct {
	Search          string   `json:"search"`
	Date            string   `json:"date,omitempty"` // YYYY-MM-DD in the display timezone
	Categories      []string `json:"categories,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty"`
	LookbackMinutes int      `json:"lookback_minutes,omitempty"`
}

func (f Filters) Criteria() (feed.FilterCriteria, time.Duration, error) {
	criteria := feed.FilterCriteria{
		SearchQuery:     strings.TrimSpace(f.Search),
		Sources:         compact(f.Sources),
		ExcludeKeywords: compact(f.ExcludeKeywords),
	}

	if f.Date != "" {
		day, err := feed.ParseDay(f.Date)
		if err != nil {
			return feed.FilterCriteria{}, 0, err
		}
		criteria.Date = &day
	}

	for _, name := range compact(f.Categories) {
		category, err := feed.ParseCategory(name)
		if err != nil {
			return feed.FilterCriteria{}, 0, err
		}
		criteria.Categories = append(criteria.Categories, category)
	}

	if f.LookbackMinutes < 0 {
		return feed.FilterCriteria{}, 0, fmt.Errorf("lookback minutes must be non-negative")
	}

	return criteria, time.Duration(f.LookbackMinutes) * time.Minute, nil
}

func FiltersFromCriteria(criteria feed.FilterCriteria, lookback time.Duration) Filters {
	filters := Filters{
		Search:          criteria.SearchQuery,
		Sources:         criteria.Sources,
		ExcludeKeywords: criteria.ExcludeKeywords,
		LookbackMinutes: int(lookback / time.Minute),
	}
	if criteria.Date != nil {
		filters.Date = criteria.Date.String()
	}
	for _, category := range criteria.Categories {
		filters.Categories = append(filters.Categories, string(category))
	}
	return filters
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
