package cache

import "sync"

// MemoryCache implements a simple in-memory cache. Entries live until they
// are deleted.
type MemoryCache struct {
	items map[string]interface{}
	mutex sync.RWMutex
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]interface{}),
	}
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = value
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	value, exists := c.items[key]
	return value, exists
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// TemplateCache provides convenience methods for caching loaded page templates
type TemplateCache struct {
	*MemoryCache
}

// NewTemplateCache creates a template cache whose entries stay until invalidated
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		MemoryCache: NewMemoryCache(),
	}
}

// SetTemplate caches the raw text of a template
func (tc *TemplateCache) SetTemplate(name, text string) {
	tc.Set(name, text)
}

// GetTemplate retrieves cached template text
func (tc *TemplateCache) GetTemplate(name string) (string, bool) {
	value, exists := tc.Get(name)
	if !exists {
		return "", false
	}

	text, ok := value.(string)
	return text, ok
}
