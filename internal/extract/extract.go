// Package extract pulls page metadata and model-ready text out of rendered HTML.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/sitecrawler/internal/slug"
)

// TextMode selects how page text is rendered for the language model.
type TextMode string

// Supported text modes.
const (
	TextModePlain    TextMode = "text"
	TextModeMarkdown TextMode = "markdown"
)

var (
	whitespaceRe = regexp.MustCompile(`[ \t\f\r]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// Metadata is what the crawl record needs from a page's head.
type Metadata struct {
	Title       string
	Description string
	Slug        string
}

// Parse builds a goquery document from rendered HTML.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractMetadata reads title and description from doc and derives the slug from
// rawURL. Missing elements resolve to empty strings. Slug is empty when rawURL has
// no derivable identity.
func ExtractMetadata(doc *goquery.Document, rawURL string) Metadata {
	name, _ := slug.Derive(rawURL)
	return Metadata{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: description(doc),
		Slug:        name,
	}
}

// description prefers <meta name="description"> and falls back to og:description.
// A present tag wins even when its content is empty.
func description(doc *goquery.Document) string {
	if sel := doc.Find(`meta[name="description"]`).First(); sel.Length() > 0 {
		return strings.TrimSpace(sel.AttrOr("content", ""))
	}
	if sel := doc.Find(`meta[property="og:description"]`).First(); sel.Length() > 0 {
		return strings.TrimSpace(sel.AttrOr("content", ""))
	}
	return ""
}

// Text renders html as model input according to mode.
func Text(doc *goquery.Document, html string, mode TextMode) (string, error) {
	switch mode {
	case TextModeMarkdown:
		markdown, err := htmltomarkdown.ConvertString(html)
		if err != nil {
			return "", fmt.Errorf("converting HTML to markdown: %w", err)
		}
		return strings.TrimSpace(markdown), nil
	case TextModePlain, "":
		return VisibleText(doc), nil
	default:
		return "", fmt.Errorf("unknown text mode %q", mode)
	}
}

// VisibleText returns the document text without script, style and template content,
// with runs of blank space collapsed. doc is not modified.
func VisibleText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("script,noscript,style,template,svg").Remove()
	text := clone.Text()

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
