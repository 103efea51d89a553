package feed

import (
	"fmt"
	"time"
)

// Freshness bands elapsed minutes since publication. Each band includes its
// upper bound: 15 min is LIVE, 120 min is RECENT, 1440 min is TODAY.
func Freshness(publishedAt, now time.Time) (FreshnessTag, string) {
	minutes := int(now.Sub(publishedAt) / time.Minute)

	switch {
	case minutes < 0:
		return FreshnessFuture, "just now"
	case minutes <= 15:
		return FreshnessLive, fmt.Sprintf("%d min ago", minutes)
	case minutes <= 120:
		return FreshnessRecent, fmt.Sprintf("%dh %dm ago", minutes/60, minutes%60)
	case minutes <= 1440:
		return FreshnessToday, fmt.Sprintf("%dh ago", minutes/60)
	default:
		return FreshnessOlder, fmt.Sprintf("%dd ago", minutes/1440)
	}
}
