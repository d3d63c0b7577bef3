package router

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockShards = 64

// KeyedMutex serializes work per phone key. Keys hash onto a fixed set of
// shards, so unrelated keys occasionally share a lock.
type KeyedMutex struct {
	shards [lockShards]sync.Mutex
}

func shardOf(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockShards)
}

// Lock locks key and returns its unlock function.
func (m *KeyedMutex) Lock(key string) func() {
	return m.LockAll(key)
}

// LockAll locks every key's shard in ascending shard order, so two callers
// locking overlapping sets cannot deadlock.
func (m *KeyedMutex) LockAll(keys ...string) func() {
	seen := make(map[int]bool, len(keys))
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		s := shardOf(k)
		if !seen[s] {
			seen[s] = true
			idx = append(idx, s)
		}
	}
	sort.Ints(idx)

	for _, i := range idx {
		m.shards[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			m.shards[idx[j]].Unlock()
		}
	}
}
