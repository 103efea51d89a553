package feed

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the articles that pass every active criterion and are not yet in
// seen. Admitted links are added to seen, so a second call with the same input
// returns nothing.
func (f *Filterer) Run(articles []Article, seen *SeenSet, criteria FilterCriteria) []Article {
	filtered := f.Select(articles, seen, criteria)
	for _, article := range filtered {
		seen.Add(article.Link)
	}
	return filtered
}

// Select is Run without touching seen. A link repeated within articles is
// selected once.
func (f *Filterer) Select(articles []Article, seen *SeenSet, criteria FilterCriteria) []Article {
	filtered := make([]Article, 0, len(articles))
	picked := make(map[string]struct{}, len(articles))
	for _, article := range articles {
		reason := f.rejectReason(article, seen, criteria)
		if _, dup := picked[article.Link]; reason == "" && dup {
			reason = "already seen"
		}
		if reason != "" {
			slog.Debug("Article filtered", "link", article.Link, "reason", reason)
			continue
		}

		picked[article.Link] = struct{}{}
		filtered = append(filtered, article)
	}

	return filtered
}

func (f *Filterer) rejectReason(article Article, seen *SeenSet, criteria FilterCriteria) string {
	text := article.Title + " " + article.Summary

	for _, exclude := range criteria.ExcludeKeywords {
		if f.matchesFilter(text, exclude) {
			return fmt.Sprintf("contains excluded keyword '%s'", exclude)
		}
	}

	if criteria.Date != nil && DayOf(article.PublishedAt) != *criteria.Date {
		return fmt.Sprintf("published on %s, not %s", DayOf(article.PublishedAt), criteria.Date)
	}

	if criteria.Since != nil && article.PublishedAt.Before(*criteria.Since) {
		return "published before lookback window"
	}

	if query := strings.TrimSpace(criteria.SearchQuery); query != "" && !f.matchesFilter(text, query) {
		return fmt.Sprintf("does not contain '%s'", query)
	}

	if len(criteria.Categories) > 0 && !slices.Contains(criteria.Categories, article.Category) {
		return fmt.Sprintf("category %s not selected", article.Category)
	}

	if len(criteria.Sources) > 0 && !slices.ContainsFunc(criteria.Sources, func(s string) bool {
		return fold(s) == fold(article.Source)
	}) {
		return fmt.Sprintf("source %s not selected", article.Source)
	}

	if seen.Contains(article.Link) {
		return "already seen"
	}

	return ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	return strings.Contains(fold(value), fold(pattern))
}
