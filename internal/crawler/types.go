package crawler

import (
	"errors"
	"time"

	"github.com/JakeFAU/sitecrawler/internal/enrich"
)

// ErrInvalidURL is returned when a request URL cannot identify a crawlable page.
var ErrInvalidURL = errors.New("invalid url")

// DefaultLanguages is used when a request does not name any languages.
var DefaultLanguages = []string{"zh", "en"}

// Request is one crawl invocation.
type Request struct {
	URL       string   `json:"url"`
	Tags      []string `json:"tags,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// Translation is one language variant of the record.
type Translation = enrich.Translation

// Result is the content record produced for a URL.
type Result struct {
	ID            string        `json:"-"`
	CrawledAt     time.Time     `json:"-"`
	Name          string        `json:"name"`
	URL           string        `json:"url"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ScreenshotKey string        `json:"screenshot_key"`
	Tags          []string      `json:"tags"`
	Languages     []Translation `json:"languages"`
}
