/*
File: cache.go
Version: 2.0.0
Description: Thread-safe sharded LRU cache of URL predictions used by the prediction
             service. Hit and miss counters are exported on /healthz.
*/

package main

import (
	"container/list"
	"hash/maphash"
	"sync"
	"sync/atomic"
)

const predictionCacheShards = 64

type predictionCacheEntry struct {
	key        string
	prediction Prediction
}

type predictionCacheShard struct {
	sync.Mutex
	items    map[string]*list.Element
	lruList  *list.List
	capacity int
}

type PredictionCache struct {
	shards [predictionCacheShards]*predictionCacheShard
	seed   maphash.Seed

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPredictionCache returns a cache holding about capacity entries, spread evenly
// over the shards. A capacity of 0 or less returns nil, which disables caching.
func NewPredictionCache(capacity int) *PredictionCache {
	if capacity <= 0 {
		return nil
	}
	c := &PredictionCache{
		seed: maphash.MakeSeed(),
	}
	shardCap := capacity / predictionCacheShards
	if shardCap < 1 {
		shardCap = 1
	}

	for i := 0; i < predictionCacheShards; i++ {
		c.shards[i] = &predictionCacheShard{
			items:    make(map[string]*list.Element),
			lruList:  list.New(),
			capacity: shardCap,
		}
	}
	return c
}

func (c *PredictionCache) getShard(key string) *predictionCacheShard {
	return c.shards[maphash.String(c.seed, key)&(predictionCacheShards-1)]
}

func (c *PredictionCache) Get(key string) (Prediction, bool) {
	if c == nil {
		return Prediction{}, false
	}
	shard := c.getShard(key)
	shard.Lock()
	defer shard.Unlock()

	if el, ok := shard.items[key]; ok {
		shard.lruList.MoveToFront(el)
		c.hits.Add(1)
		return el.Value.(*predictionCacheEntry).prediction, true
	}
	c.misses.Add(1)
	return Prediction{}, false
}

func (c *PredictionCache) Add(key string, p Prediction) {
	if c == nil {
		return
	}
	shard := c.getShard(key)
	shard.Lock()
	defer shard.Unlock()

	if elem, found := shard.items[key]; found {
		shard.lruList.MoveToFront(elem)
		elem.Value.(*predictionCacheEntry).prediction = p
		return
	}

	if shard.lruList.Len() >= shard.capacity {
		if oldest := shard.lruList.Back(); oldest != nil {
			shard.lruList.Remove(oldest)
			delete(shard.items, oldest.Value.(*predictionCacheEntry).key)
		}
	}

	shard.items[key] = shard.lruList.PushFront(&predictionCacheEntry{key: key, prediction: p})
}

func (c *PredictionCache) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, shard := range c.shards {
		shard.Lock()
		n += shard.lruList.Len()
		shard.Unlock()
	}
	return n
}

func (c *PredictionCache) Flush() {
	if c == nil {
		return
	}
	for _, shard := range c.shards {
		shard.Lock()
		shard.items = make(map[string]*list.Element)
		shard.lruList.Init()
		shard.Unlock()
	}
}

// CacheStats is a point-in-time view of the cache counters.
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func (c *PredictionCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{Entries: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}
