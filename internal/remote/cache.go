package remote

import "sync"

// Cache is the process-wide remote-id -> resolved sgroup-id set cache
// described in spec.md §3/§4.7: many requests read it concurrently,
// and a modify_remote_sql_query mutation invalidates it, the way
// keto's namespace_memory.go guards its namespace map with a plain
// sync.RWMutex rather than a third-party concurrent map (the
// read:write ratio here is the same — frequent reads, rare,
// wholesale-invalidating writes).
type Cache struct {
	mu sync.RWMutex
	m  map[string][]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{m: map[string][]string{}}
}

// Get returns the cached sgroup ids for remoteID, and whether they
// were present. A miss is not an error: callers re-resolve from the
// store.
func (c *Cache) Get(remoteID string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.m[remoteID]
	return ids, ok
}

// Set stores the resolved sgroup ids for remoteID.
func (c *Cache) Set(remoteID string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[remoteID] = ids
}

// Invalidate clears remoteID's cached entry. Called whenever
// modify_remote_sql_query changes that remote's query.
func (c *Cache) Invalidate(remoteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, remoteID)
}

// Clear drops every cached entry, mirroring the original's
// /clear_cache endpoint.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[string][]string{}
}
