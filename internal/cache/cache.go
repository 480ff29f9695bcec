// Package cache memoizes adapter results keyed by content hash so that
// identical input never triggers a duplicate external call within the
// process lifetime.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key returns the hex SHA-256 digest of the given parts. It is a pure
// function used only as a memoization key, never as a security boundary.
// Callers mix the operation kind into the parts so that the same bytes
// fed to different adapters never collide.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache stores computed results for the life of the process. Concurrent
// callers asking for the same key are collapsed into a single computation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	flight  singleflight.Group
}

// New constructs an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// GetOrCompute returns the value for key, running fn at most once per key
// on success. Failed computations are not stored, so a later call with the
// same key retries.
func (c *Cache) GetOrCompute(key string, fn func() ([]byte, error)) ([]byte, error) {
	c.mu.RLock()
	if v, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent flight may have stored the value between the
		// read above and acquiring the flight slot.
		c.mu.RLock()
		if v, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return v, nil
		}
		c.mu.RUnlock()

		out, err := fn()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = out
		c.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// GetOrComputeString is GetOrCompute for text results.
func (c *Cache) GetOrComputeString(key string, fn func() (string, error)) (string, error) {
	out, err := c.GetOrCompute(key, func() ([]byte, error) {
		s, err := fn()
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
