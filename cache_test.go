package main

import (
	"fmt"
	"testing"
)

func TestPredictionCache(t *testing.T) {
	c := NewPredictionCache(1024)
	if _, ok := c.Get("a"); ok {
		t.Fatal("hit on empty cache")
	}
	c.Add("a", Prediction{URL: "a", Label: "1"})
	p, ok := c.Get("a")
	if !ok || p.Label != "1" {
		t.Fatalf("Get = %+v, %v", p, ok)
	}
	c.Add("a", Prediction{URL: "a", Label: "0"})
	if p, _ := c.Get("a"); p.Label != "0" {
		t.Errorf("update lost: %+v", p)
	}

	stats := c.Stats()
	if stats.Entries != 1 || stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}

	c.Flush()
	if c.Len() != 0 {
		t.Errorf("Len after Flush = %d", c.Len())
	}
}

func TestPredictionCacheEviction(t *testing.T) {
	// One entry per shard.
	c := NewPredictionCache(predictionCacheShards)
	for i := 0; i < 10*predictionCacheShards; i++ {
		c.Add(fmt.Sprint(i), Prediction{})
	}
	if n := c.Len(); n > predictionCacheShards {
		t.Errorf("Len = %d exceeds capacity %d", n, predictionCacheShards)
	}
}

func TestPredictionCacheDisabled(t *testing.T) {
	c := NewPredictionCache(0)
	if c != nil {
		t.Fatal("capacity 0 should disable the cache")
	}
	c.Add("a", Prediction{})
	if _, ok := c.Get("a"); ok {
		t.Error("disabled cache returned a hit")
	}
	if c.Stats() != (CacheStats{}) {
		t.Error("disabled cache has stats")
	}
}

func TestShardedGroup(t *testing.T) {
	g := NewShardedGroup[int]()
	v, err, _ := g.Do("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Do = %v, %v", v, err)
	}
	v, err, _ = g.Do("k", func() (int, error) { return 0, fmt.Errorf("fail") })
	if err == nil || v != 0 {
		t.Errorf("Do error = %v, %v", v, err)
	}
	g.Forget("k")
}
