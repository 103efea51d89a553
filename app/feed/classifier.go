package feed

import (
	"strings"

	"golang.org/x/text/cases"
)

var categoryKeywords = map[Category][]string{
	CategoryPolitics: {
		"election", "government", "minister", "parliament", "president", "senate",
		"congress", "policy", "vote", "political", "politics", "lok sabha", "bjp", "diplomat",
	},
	CategoryTechnology: {
		"technology", "tech", "software", "app", "smartphone", "artificial intelligence",
		"startup", "cyber", "internet", "gadget", "semiconductor", "robot", "digital",
	},
	CategoryBusiness: {
		"market", "stock", "economy", "business", "trade", "company", "profit", "revenue",
		"investment", "bank", "sensex", "nifty", "shares", "inflation", "gdp", "growth",
	},
	CategorySports: {
		"cricket", "football", "soccer", "tennis", "olympic", "match", "tournament",
		"league", "sport", "player", "coach", "world cup",
	},
	CategoryEntertainment: {
		"movie", "film", "bollywood", "hollywood", "music", "celebrity", "actor",
		"actress", "box office", "series", "album", "award",
	},
	CategoryHealth: {
		"health", "hospital", "disease", "vaccine", "covid", "medical", "doctor",
		"virus", "patient", "cancer", "fitness", "mental health",
	},
	CategoryScience: {
		"science", "research", "space", "nasa", "isro", "climate", "scientist",
		"study", "discovery", "planet", "physics", "biology",
	},
}

var positiveKeywords = []string{
	"growth", "surge", "gain", "rise", "profit", "breakthrough", "success", "win",
	"record high", "boost", "rally", "improve", "positive", "soar", "recovery", "upgrade",
}

var negativeKeywords = []string{
	"crisis", "decline", "fall", "loss", "crash", "war", "attack", "death", "killed",
	"drop", "slump", "fear", "fraud", "scam", "negative", "plunge", "conflict", "downgrade",
}

type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the first category, in priority order, with a keyword
// contained in the lowercased title and summary.
func (c *Classifier) Classify(title, summary string) Category {
	text := strings.ToLower(title + " " + summary)

	for _, category := range Categories {
		if containsAny(text, categoryKeywords[category]) {
			return category
		}
	}
	return CategoryGeneral
}

// Sentiment compares how many positive and negative keywords the text
// contains. Each keyword counts once.
func (c *Classifier) Sentiment(title, summary string) Sentiment {
	text := strings.ToLower(title + " " + summary)

	positive := countContained(text, positiveKeywords)
	negative := countContained(text, negativeKeywords)

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Enrich fills category and sentiment.
func (c *Classifier) Enrich(article *Article) {
	article.Category = c.Classify(article.Title, article.Summary)
	article.Sentiment = c.Sentiment(article.Title, article.Summary)
}

// MatchesAny reports whether text contains any keyword, ignoring case.
func MatchesAny(text string, keywords []string) bool {
	folded := fold(text)
	for _, keyword := range keywords {
		k := fold(strings.TrimSpace(keyword))
		if k != "" && strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func countContained(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}

// fold applies Unicode case folding. A Caser holds state, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
