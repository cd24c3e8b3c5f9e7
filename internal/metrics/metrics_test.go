package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveCrawlCountsBySiteAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(crawlsTotal.WithLabelValues("metrics-test.example", "success"))
	ObserveCrawl("https://Metrics-Test.example/path", "success", time.Second)
	after := testutil.ToFloat64(crawlsTotal.WithLabelValues("metrics-test.example", "success"))
	if after-before != 1 {
		t.Fatalf("expected crawl counter to increase by 1, got %f", after-before)
	}
}

func TestObservePageLoadStepFailure(t *testing.T) {
	before := testutil.ToFloat64(pageLoadStepFailuresTotal.WithLabelValues("metrics_test_step"))
	ObservePageLoadStepFailure("metrics_test_step")
	ObservePageLoadStepFailure("metrics_test_step")
	after := testutil.ToFloat64(pageLoadStepFailuresTotal.WithLabelValues("metrics_test_step"))
	if after-before != 2 {
		t.Fatalf("expected two failures recorded, got %f", after-before)
	}
}

func TestObserveModelCallAndScreenshotBytes(t *testing.T) {
	before := testutil.ToFloat64(modelCallsTotal.WithLabelValues("metrics_test", "error"))
	ObserveModelCall("metrics_test", "error", 10*time.Millisecond)
	if got := testutil.ToFloat64(modelCallsTotal.WithLabelValues("metrics_test", "error")) - before; got != 1 {
		t.Fatalf("expected model call counted, got %f", got)
	}

	bytesBefore := testutil.ToFloat64(screenshotBytesTotal)
	ObserveScreenshotBytes(0)
	ObserveScreenshotBytes(512)
	if got := testutil.ToFloat64(screenshotBytesTotal) - bytesBefore; got != 512 {
		t.Fatalf("expected 512 screenshot bytes, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
