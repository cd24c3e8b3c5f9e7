package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/sitecrawler/internal/slug"
)

// ValidateURL checks that rawURL is an absolute http(s) URL from which a slug can be
// derived, and returns the trimmed URL together with that slug. The URL is otherwise
// left untouched so the slug keeps the caller's casing.
func ValidateURL(rawURL string) (string, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	name, ok := slug.Derive(rawURL)
	if !ok {
		return "", "", fmt.Errorf("%w: no name derivable from %q", ErrInvalidURL, rawURL)
	}
	return rawURL, name, nil
}
