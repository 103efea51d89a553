package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

const ExportTimeLayout = "2006-01-02 15:04"

type ExportRecord struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	Category  string `json:"category"`
	Sentiment string `json:"sentiment"`
	Time      string `json:"time"`
	Link      string `json:"link"`
}

func RecordsFromArticles(articles []Article, loc *time.Location) []ExportRecord {
	records := make([]ExportRecord, 0, len(articles))
	for _, article := range articles {
		published := article.PublishedAt
		if loc != nil {
			published = published.In(loc)
		}
		records = append(records, ExportRecord{
			Title:     article.Title,
			Source:    article.Source,
			Category:  string(article.Category),
			Sentiment: string(article.Sentiment),
			Time:      published.Format(ExportTimeLayout),
			Link:      article.Link,
		})
	}
	return records
}

// ExportCSV writes one header row and one row per record. The title is
// always quoted; other fields only when they need it.
func ExportCSV(w io.Writer, records []ExportRecord) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("Title,Source,Category,Sentiment,Time,Link\n"); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		fields := []string{
			quoteCSV(r.Title),
			escapeCSV(r.Source),
			escapeCSV(r.Category),
			escapeCSV(r.Sentiment),
			escapeCSV(r.Time),
			escapeCSV(r.Link),
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func ExportJSON(w io.Writer, records []ExportRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON export: %w", err)
	}
	return nil
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quoteCSV(s)
	}
	return s
}
