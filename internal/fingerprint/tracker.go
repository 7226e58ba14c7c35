// Package fingerprint summarizes the user's navigation context (search page
// and filters) into a short comparable value.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"sync/atomic"
)

// DefaultParams are the query parameters that identify a search context.
var DefaultParams = []string{"keywords", "geoId", "f_TPR", "f_WT"}

const fpLen = 12

// Compute returns the fingerprint of rawURL: its path plus the given query
// params. An unparseable or empty URL yields "".
func Compute(rawURL string, params []string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, u.Path)
	for _, p := range params {
		parts = append(parts, q.Get(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:fpLen]
}

// Tracker holds the live fingerprint. The ingestion loop is the only writer;
// workers read it concurrently.
type Tracker struct {
	params []string
	live   atomic.Value // string
}

// NewTracker returns a tracker using params (DefaultParams when empty).
func NewTracker(params []string) *Tracker {
	if len(params) == 0 {
		params = DefaultParams
	}
	t := &Tracker{params: params}
	t.live.Store("")
	return t
}

// Compute fingerprints rawURL with the tracker's params.
func (t *Tracker) Compute(rawURL string) string {
	return Compute(rawURL, t.params)
}

// Current returns the live fingerprint.
func (t *Tracker) Current() string {
	return t.live.Load().(string)
}

// Changed reports whether the live fingerprint differs from prev.
func (t *Tracker) Changed(prev string) bool {
	return t.Current() != prev
}

// Update stores fp as the live fingerprint and reports whether it changed.
func (t *Tracker) Update(fp string) bool {
	return t.live.Swap(fp).(string) != fp
}
