// Package crawler composes page loading, extraction, screenshot publishing and
// enrichment into a single crawl operation that produces a content record for a URL.
package crawler
