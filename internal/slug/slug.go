// Package slug derives stable record names from page URLs.
package slug

import (
	"net/url"
	"strings"
)

// Derive maps rawURL to the identifier used as record name and screenshot key.
// The leading "www." is dropped from the host, a trailing "/" is dropped from the
// path, path separators and dots become "-". Casing and percent-escapes in the path
// are preserved. The boolean is false when no identity can be derived (empty or
// unparseable input).
func Derive(rawURL string) (string, bool) {
	if strings.TrimSpace(rawURL) == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	name := host + strings.ReplaceAll(path, "/", "-")
	name = strings.ReplaceAll(name, ".", "-")
	if name == "" {
		return "", false
	}
	return name, true
}
