package cache

import (
	"crypto/sha256"
	"fmt"
)

// FeedKey generates a consistent cache key for a feed URL
func FeedKey(feedURL string) string {
	hash := sha256.Sum256([]byte(feedURL))
	return fmt.Sprintf("newsdesk:feed:%x", hash[:8])
}
