package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "NYS-District-Dashboard/1.0 (Educational Research)"

const (
	// defaultTimeout bounds each page GET.
	defaultTimeout = 30 * time.Second
	// workbookTimeout allows for the large shared XLSX download.
	workbookTimeout = 120 * time.Second
)

// Result is one successful HTTP response body plus the validator headers
// recorded alongside it.
type Result struct {
	Body         []byte
	ETag         string
	LastModified string
}

// Client performs retried HTTP GETs with a shared identifying User-Agent.
// It is safe for concurrent use across district workflows.
type Client struct {
	http  *http.Client
	retry RetryPolicy

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

func NewClient(retry RetryPolicy) *Client {
	return &Client{
		http:  &http.Client{},
		retry: retry,
		sleep: time.Sleep,
	}
}

// Get fetches url, following redirects, retrying per the client's policy.
// A non-2xx status is an error. After the attempt budget is exhausted the
// last error is returned; the caller records the failure rather than
// aborting the run.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	var result *Result
	err := c.retry.Do(ctx, c.sleep, func() error {
		res, err := c.getOnce(ctx, url, timeout)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) getOnce(ctx context.Context, url string, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}

	return &Result{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
