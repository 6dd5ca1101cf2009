package blockstore

import "container/list"

// entry is the payload stored in the cache's linked list.
type entry struct {
	key   int
	bytes []byte
}

// Cache is an LRU cache over decompressed spilled blocks, bounded by a
// byte budget rather than an item count: block sizes vary, and the point
// of caching is to avoid repeat LZ4 decompression while bounding memory,
// not to pin a fixed number of blocks.
type Cache struct {
	maxBytes  int64
	curBytes  int64
	ll        *list.List
	index     map[int]*list.Element
}

func NewCache(maxBytes int64) *Cache {
	return &Cache{maxBytes: maxBytes, ll: list.New(), index: make(map[int]*list.Element)}
}

// Get returns the cached bytes for blockIdx and marks it most-recently
// used, or (nil, false) on a miss.
func (c *Cache) Get(blockIdx int) ([]byte, bool) {
	el, ok := c.index[blockIdx]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).bytes, true
}

// Put inserts or refreshes blockIdx, evicting least-recently-used blocks
// until the byte budget is respected.
func (c *Cache) Put(blockIdx int, data []byte) {
	if el, ok := c.index[blockIdx]; ok {
		c.curBytes -= int64(len(el.Value.(*entry).bytes))
		el.Value.(*entry).bytes = data
		c.curBytes += int64(len(data))
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry{key: blockIdx, bytes: data})
		c.index[blockIdx] = el
		c.curBytes += int64(len(data))
	}
	for c.curBytes > c.maxBytes && c.ll.Len() > 1 {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	e := el.Value.(*entry)
	delete(c.index, e.key)
	c.curBytes -= int64(len(e.bytes))
}

// Len reports how many blocks are currently cached.
func (c *Cache) Len() int { return c.ll.Len() }
