// Package api hosts the HTTP server, middleware, and handlers. Routes:
//   - POST /site/crawl runs one crawl synchronously and returns the record.
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
