package config

import (
	"sync"
	"time"
)

// CachedProvider wraps a ConfigProvider and serves LoadConfig and GetTides
// from memory until the cache is older than ttl. A zero ttl caches until
// Reload is called.
type CachedProvider struct {
	provider ConfigProvider
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	config   *ConfigData
	loadedAt time.Time
}

// NewCachedProvider creates a caching wrapper around provider
func NewCachedProvider(provider ConfigProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
	}
}

// LoadConfig returns the cached configuration, loading it when stale
func (c *CachedProvider) LoadConfig() (*ConfigData, error) {
	c.mu.RLock()
	config, fresh := c.config, c.fresh()
	c.mu.RUnlock()
	if config != nil && fresh {
		return config, nil
	}
	return c.Reload()
}

// GetTides returns the tide definitions from the cached configuration
func (c *CachedProvider) GetTides() ([]TideData, error) {
	config, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Tides, nil
}

// Reload bypasses the cache and reads the wrapped provider again
func (c *CachedProvider) Reload() (*ConfigData, error) {
	config, err := c.provider.LoadConfig()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.config = config
	c.loadedAt = c.now()
	c.mu.Unlock()
	return config, nil
}

func (c *CachedProvider) fresh() bool {
	return c.ttl == 0 || c.now().Sub(c.loadedAt) < c.ttl
}

func (c *CachedProvider) IsReadOnly() bool {
	return c.provider.IsReadOnly()
}

func (c *CachedProvider) Close() error {
	return c.provider.Close()
}
