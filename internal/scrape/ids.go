package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// ExternalID extracts the trailing path segment of a detail-page link. The
// site keys events, fighters and fights by that segment, so it doubles as
// the natural key for upserts.
func ExternalID(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty link")
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", fmt.Errorf("link %q has no path segments", href)
	}

	segments := strings.Split(path, "/")
	return segments[len(segments)-1], nil
}

// collapse squeezes runs of whitespace in scraped cell text.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
