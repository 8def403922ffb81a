package build

import "sync"

// CacheKey uniquely identifies a compiled rule by source digest and
// language tag.
type CacheKey string

// CacheStats exposes basic cache metrics.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Entries   int64
	Evictions int64
}

// ruleCache is a thread-safe LRU of compiled rules with a max entry count.
type ruleCache struct {
	mu       sync.Mutex
	capacity int
	llHead   *lruNode
	llTail   *lruNode
	table    map[CacheKey]*lruNode
	stats    CacheStats
}

type lruNode struct {
	key  CacheKey
	val  *CompiledRule
	prev *lruNode
	next *lruNode
}

func newRuleCache(capacity int) *ruleCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &ruleCache{capacity: capacity, table: make(map[CacheKey]*lruNode)}
}

func (c *ruleCache) moveToFront(n *lruNode) {
	if c.llHead == n {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.llTail == n {
		c.llTail = n.prev
	}
	n.prev = nil
	n.next = c.llHead
	if c.llHead != nil {
		c.llHead.prev = n
	}
	c.llHead = n
	if c.llTail == nil {
		c.llTail = n
	}
}

func (c *ruleCache) evictIfNeeded() {
	for len(c.table) > c.capacity {
		if c.llTail == nil {
			return
		}
		n := c.llTail
		delete(c.table, n.key)
		if n.prev != nil {
			n.prev.next = nil
		}
		c.llTail = n.prev
		if c.llTail == nil {
			c.llHead = nil
		}
		c.stats.Evictions++
		c.stats.Entries = int64(len(c.table))
	}
}

func (c *ruleCache) Get(key CacheKey) (*CompiledRule, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[key]; ok {
		c.moveToFront(n)
		c.stats.Hits++
		return n.val, true
	}
	c.stats.Misses++
	return nil, false
}

func (c *ruleCache) Put(key CacheKey, r *CompiledRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[key]; ok {
		n.val = r
		c.moveToFront(n)
		return
	}
	n := &lruNode{key: key, val: r}
	n.next = c.llHead
	if c.llHead != nil {
		c.llHead.prev = n
	}
	c.llHead = n
	if c.llTail == nil {
		c.llTail = n
	}
	c.table[key] = n
	c.stats.Entries = int64(len(c.table))
	c.evictIfNeeded()
}

func (c *ruleCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
