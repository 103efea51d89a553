package feed

import (
	"fmt"
	"net/url"
)

// ValidateFeedURL accepts absolute http(s) URLs only.
func ValidateFeedURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("feed URL is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed feed URL '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("feed URL '%s' must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("feed URL '%s' has no host", raw)
	}
	return nil
}
