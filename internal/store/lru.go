package store

import (
	"container/list"

	"github.com/dan5py/mbox-viewer-sub001/internal/mime"
)

// lruCache is a fixed-capacity LRU over decoded messages, keyed by message
// index. get/put/evict are O(1): a doubly linked list keeps recency order
// (front = most recent) and a map indexes the list entries. Both hits and
// inserts refresh recency.
type lruCache struct {
	max     int
	order   *list.List
	entries map[int]*list.Element
}

type lruEntry struct {
	index int
	msg   *mime.EmailMessage
}

func newLRUCache(max int) *lruCache {
	return &lruCache{
		max:     max,
		order:   list.New(),
		entries: make(map[int]*list.Element),
	}
}

func (c *lruCache) get(index int) (*mime.EmailMessage, bool) {
	el, ok := c.entries[index]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).msg, true
}

// put inserts or refreshes an entry, evicting the least recently used one
// when the bound is exceeded. Insert and evict happen in the same call, so
// no caller ever observes the cache above its bound.
func (c *lruCache) put(index int, msg *mime.EmailMessage) {
	if el, ok := c.entries[index]; ok {
		el.Value.(*lruEntry).msg = msg
		c.order.MoveToFront(el)
		return
	}
	c.entries[index] = c.order.PushFront(&lruEntry{index: index, msg: msg})
	if c.max > 0 && c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).index)
	}
}

func (c *lruCache) len() int {
	return c.order.Len()
}

func (c *lruCache) clear() {
	c.order.Init()
	c.entries = make(map[int]*list.Element)
}
