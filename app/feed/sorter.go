package feed

import "slices"

// SortByPublished orders articles newest first. Equal timestamps keep their
// discovery order.
func SortByPublished(articles []Article) {
	slices.SortStableFunc(articles, func(a, b Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

// CountByCategory returns the number of articles per category.
func CountByCategory(articles []Article) map[Category]int {
	counts := make(map[Category]int)
	for _, article := range articles {
		counts[article.Category]++
	}
	return counts
}
