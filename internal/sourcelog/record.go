// Package sourcelog tracks the outcome of every source fetch: what was
// downloaded, when, from where, and whether a cached artifact was reused.
// The persisted log (cache/sources.json) is the contract between the
// fetch stage and the normalization stage.
package sourcelog

import (
	"os"
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one logged outcome of an attempt to obtain content from a URL.
//
// FetchedAt marks when the network retrieval actually happened and is
// carried forward unchanged when a cached artifact is reused; ReusedAt
// marks the reuse itself. ETag and LastModified are captured from response
// headers but are not used for conditional requests.
type Record struct {
	URL          string `json:"url"`
	FetchedAt    string `json:"fetched_at"`
	Status       string `json:"status"`
	Filepath     string `json:"filepath,omitempty"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	ReusedAt     string `json:"reused_at,omitempty"`
}

// FetchedTime parses the record's fetch timestamp. Timestamps without
// timezone information are interpreted as UTC; malformed timestamps are
// treated as absent.
func (r Record) FetchedTime() (time.Time, bool) {
	return ParseTimestamp(r.FetchedAt)
}

// ParseTimestamp accepts RFC 3339 timestamps, with a naive
// (no-timezone) fallback read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Fresh reports whether rec's artifact may be reused without a network
// call: the fetch timestamp parses, is within window of now, and the
// artifact still exists on disk. Any failure to establish freshness
// answers false so the caller refetches.
func Fresh(rec Record, window time.Duration, now time.Time) bool {
	fetched, ok := rec.FetchedTime()
	if !ok {
		return false
	}
	if now.Sub(fetched) > window {
		return false
	}
	if rec.Filepath == "" {
		return false
	}
	if _, err := os.Stat(rec.Filepath); err != nil {
		return false
	}
	return true
}
