package cache

import (
	"sync"
	"time"
)

// DomainCache 缓存服务商的可注册域名列表。
//
// 域名列表变化极少，缓存避免每次 /new 都访问一次 /domains。
// 过期后由调用方重新拉取并写入，拉取失败时可以继续使用
// 过期数据作兜底。
type DomainCache struct {
	mu        sync.RWMutex
	domains   []string
	fetchedAt time.Time
	ttl       time.Duration
}

// NewDomainCache 创建域名缓存。
func NewDomainCache(ttl time.Duration) *DomainCache {
	return &DomainCache{ttl: ttl}
}

// Get 返回缓存的域名列表，第二个返回值表示缓存是否仍然新鲜。
func (c *DomainCache) Get() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.domains) == 0 {
		return nil, false
	}
	fresh := time.Since(c.fetchedAt) < c.ttl
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out, fresh
}

// Set 写入新的域名列表并刷新时间戳。
func (c *DomainCache) Set(domains []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.domains = make([]string, len(domains))
	copy(c.domains, domains)
	c.fetchedAt = time.Now()
}
