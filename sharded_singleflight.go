/*
File: sharded_singleflight.go
Version: 2.0.0
Description: A sharded, typed wrapper around singleflight.Group. Identical concurrent
             predictions for the same URL run once and share the result.
*/

package main

import (
	"hash/maphash"
	"sync"

	"golang.org/x/sync/singleflight"
)

const shardedFlightCount = 512

type ShardedGroup[T any] struct {
	shards []*singleflight.Group
	seed   maphash.Seed
}

var sgPool = sync.Pool{
	New: func() any {
		return new(maphash.Hash)
	},
}

func NewShardedGroup[T any]() *ShardedGroup[T] {
	sg := &ShardedGroup[T]{
		shards: make([]*singleflight.Group, shardedFlightCount),
		seed:   maphash.MakeSeed(),
	}
	for i := 0; i < shardedFlightCount; i++ {
		sg.shards[i] = &singleflight.Group{}
	}
	return sg
}

func (g *ShardedGroup[T]) getShard(key string) *singleflight.Group {
	h := sgPool.Get().(*maphash.Hash)

	// Reset before SetSeed: reusing a pooled hasher with written data panics otherwise.
	h.Reset()
	h.SetSeed(g.seed)
	h.WriteString(key)

	idx := h.Sum64() & (shardedFlightCount - 1)
	sgPool.Put(h)

	return g.shards[idx]
}

// Do runs fn once per key among concurrent callers. shared reports whether the
// result was handed to more than one caller.
func (g *ShardedGroup[T]) Do(key string, fn func() (T, error)) (v T, err error, shared bool) {
	res, err, shared := g.getShard(key).Do(key, func() (any, error) {
		return fn()
	})
	if res != nil {
		v = res.(T)
	}
	return v, err, shared
}

func (g *ShardedGroup[T]) Forget(key string) {
	g.getShard(key).Forget(key)
}
