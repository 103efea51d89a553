package feed

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const UnknownSource = "UNKNOWN"

type Normalizer struct {
	location *time.Location
}

// NewNormalizer returns a Normalizer that converts every timestamp into loc.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{location: loc}
}

// Normalize turns a raw feed entry into an Article. Entries without a usable
// published or updated time yield false.
func (n *Normalizer) Normalize(raw RawEntry, source Source) (Article, bool) {
	publishedAt, ok := n.resolveTime(raw)
	if !ok {
		return Article{}, false
	}

	return Article{
		Link:        raw.Link,
		Title:       raw.Title,
		PublishedAt: publishedAt,
		Summary:     CleanSummary(raw.Summary),
		Source:      ResolveSource(raw.SourceName, raw.Link),
		ImageURL:    raw.MediaURL,
	}, true
}

func (n *Normalizer) Location() *time.Location {
	return n.location
}

func (n *Normalizer) resolveTime(raw RawEntry) (time.Time, bool) {
	for _, ts := range []Timestamp{raw.Published, raw.Updated} {
		if t, ok := ts.Resolve(); ok {
			return t.In(n.location), true
		}
	}
	return time.Time{}, false
}

// Resolve returns the parsed time, falling back to parsing Raw. Times without
// a zone are read as UTC.
func (t Timestamp) Resolve() (time.Time, bool) {
	if t.Parsed != nil && !t.Parsed.IsZero() {
		return *t.Parsed, true
	}

	raw := strings.TrimSpace(t.Raw)
	if raw == "" {
		return time.Time{}, false
	}

	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil || parsed.IsZero() {
		return time.Time{}, false
	}
	return parsed, true
}

// ResolveSource uses the explicit publisher name when present, otherwise the
// first label of the link's host without "www.", uppercased.
func ResolveSource(explicit, link string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}

	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() == "" {
		return UnknownSource
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return UnknownSource
	}

	return cases.Upper(language.Und).String(label)
}

// CleanSummary strips markup and collapses whitespace.
func CleanSummary(summary string) string {
	if strings.TrimSpace(summary) == "" {
		return ""
	}

	text := summary
	if strings.ContainsAny(summary, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
		if err == nil {
			text = doc.Text()
		}
	}

	return strings.Join(strings.Fields(text), " ")
}

// Preview truncates the summary to at most limit runes.
func (a Article) Preview(limit int) string {
	runes := []rune(a.Summary)
	if limit <= 0 || len(runes) <= limit {
		return a.Summary
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
