package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/scruper/pkg/httpclient"
)

// DefaultUserAgent is a browser-like agent; several newsletter hosts reject generic bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Headers returns the request headers sent with every feed fetch.
func Headers(userAgent string) map[string]string {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     "application/rss+xml, application/atom+xml, application/xml, text/xml, */*",
	}
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchDocument retrieves the raw feed body, failing on any non-2xx status.
func fetchDocument(ctx context.Context, client httpclient.Client, url string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("status %d body: %s", code, responseSnippet(body))
	}
	return body, nil
}
