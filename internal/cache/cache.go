package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ResponseCache keeps parsed generation results keyed by a screen
// fingerprint, so re-running a job over an unchanged screen skips the
// oracle call. A bounded in-memory LRU fronts an optional disk store.
type ResponseCache struct {
	mem  *lru.Cache[string, []byte]
	disk *DiskStore
}

// New creates a cache holding up to memEntries responses in memory.
// disk may be nil for a memory-only cache.
func New(memEntries int, disk *DiskStore) (*ResponseCache, error) {
	if memEntries <= 0 {
		memEntries = 256
	}
	mem, err := lru.New[string, []byte](memEntries)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{mem: mem, disk: disk}, nil
}

// Get returns the cached payload for key, consulting memory first and
// the disk store second. Disk hits are promoted into memory.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	if v, ok := c.mem.Get(key); ok {
		return v, true
	}
	if c.disk != nil {
		if v, ok := c.disk.Get(key); ok {
			c.mem.Add(key, v)
			return v, true
		}
	}
	return nil, false
}

// Put stores the payload under key in memory and, when configured, on
// disk.
func (c *ResponseCache) Put(key string, val []byte) {
	if c == nil {
		return
	}
	c.mem.Add(key, val)
	if c.disk != nil {
		_ = c.disk.Put(key, val)
	}
}

// Fingerprint hashes an arbitrary set of values into a stable cache
// key. Values are JSON-marshaled, so anything the oracle request
// carries can participate.
func Fingerprint(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		b, _ := json.Marshal(p)
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
