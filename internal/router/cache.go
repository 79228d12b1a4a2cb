package router

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DecisionCache memoizes decisions by normalized query text. It ignores
// conversation history, so a repeated query returns the first decision even
// if the history has changed since. The cache is safe for concurrent use
// and a nil cache is a disabled one.
type DecisionCache struct {
	entries *lru.Cache[string, Decision]
}

// NewDecisionCache creates a cache holding at most size decisions. A size
// of zero returns nil, which disables caching.
func NewDecisionCache(size int) (*DecisionCache, error) {
	if size == 0 {
		return nil, nil
	}
	entries, err := lru.New[string, Decision](size)
	if err != nil {
		return nil, fmt.Errorf("create decision cache: %w", err)
	}
	return &DecisionCache{entries: entries}, nil
}

// CacheKey hashes the normalized query text.
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(normalize(query)))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached decision for query, marked as cached.
func (c *DecisionCache) Get(query string) (Decision, bool) {
	if c == nil {
		return Decision{}, false
	}
	d, ok := c.entries.Get(CacheKey(query))
	if !ok {
		return Decision{}, false
	}
	d = d.clone()
	d.Cached = true
	d.Rules = append(d.Rules, RuleCache)
	return d, true
}

// Add stores a copy of d under query.
func (c *DecisionCache) Add(query string, d Decision) {
	if c == nil {
		return
	}
	c.entries.Add(CacheKey(query), d.clone())
}

// Len returns the number of cached decisions.
func (c *DecisionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every entry.
func (c *DecisionCache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}
