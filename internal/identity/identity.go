// Package identity derives the stable dedup key of a captured job posting.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/amishk599/jobwatch/internal/model"
)

// Extractor is one strategy in the resolution chain. It returns the id and
// true on success.
type Extractor func(c model.JobCapture) (string, bool)

// DefaultLinkPatterns are tried in order against the capture link. Each must
// have exactly one capture group holding the numeric id.
var DefaultLinkPatterns = []string{
	`currentJobId=(\d+)`,
	`jobId=(\d+)`,
	`/jobs/view/(\d+)`,
	`/jobs/(\d+)`,
}

// digestLen is the number of hex chars kept from the content digest.
const digestLen = 16

// Resolver maps a capture to its identity using an ordered extractor chain.
// The first extractor that succeeds wins. The final extractor always succeeds.
type Resolver struct {
	chain []Extractor
}

// NewResolver builds the default chain: platform id, then each link pattern,
// then the content digest.
func NewResolver(linkPatterns []string) (*Resolver, error) {
	chain := []Extractor{PlatformID}
	for _, p := range linkPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		chain = append(chain, LinkPattern(re))
	}
	chain = append(chain, ContentDigest)
	return &Resolver{chain: chain}, nil
}

// MustDefault returns a resolver over DefaultLinkPatterns.
func MustDefault() *Resolver {
	r, err := NewResolver(DefaultLinkPatterns)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the identity of c.
func (r *Resolver) Resolve(c model.JobCapture) string {
	for _, extract := range r.chain {
		if id, ok := extract(c); ok {
			return id
		}
	}
	// Unreachable with a chain built by NewResolver.
	id, _ := ContentDigest(c)
	return id
}

// PlatformID uses the id the platform itself exposed, verbatim.
func PlatformID(c model.JobCapture) (string, bool) {
	id := strings.TrimSpace(c.PlatformID)
	return id, id != ""
}

// LinkPattern extracts the first capture group of re from the link.
func LinkPattern(re *regexp.Regexp) Extractor {
	return func(c model.JobCapture) (string, bool) {
		m := re.FindStringSubmatch(c.Link)
		if len(m) < 2 || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
}

// ContentDigest hashes the truncated (title, company, location, link) tuple.
func ContentDigest(c model.JobCapture) (string, bool) {
	key := strings.Join([]string{
		truncate(strings.TrimSpace(c.Title), 200),
		truncate(strings.TrimSpace(c.Company), 120),
		truncate(strings.TrimSpace(c.Location), 80),
		truncate(c.Link, 300),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:digestLen], true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
