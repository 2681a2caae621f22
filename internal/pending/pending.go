// Package pending tracks, per conversation, a chosen expense category that is
// waiting for a numeric amount. Entries are ephemeral in-process state; a
// restart forgets them.
package pending

import (
	"hash/fnv"
	"sync"
)

const shardCount = 16

type shard struct {
	mu      sync.Mutex
	entries map[string]string
}

// Store is a sharded key → category map. Operations on distinct keys do not
// contend, and Take on a single key is atomic, so two concurrent amount
// submissions for the same pending category cannot both succeed.
type Store struct {
	shards [shardCount]*shard
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]string)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Set arms the key with a category, overwriting any previous choice.
func (s *Store) Set(key, category string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[key] = category
}

// Take atomically removes and returns the pending category for the key.
// Callers re-arm with Set when the amount turns out to be invalid.
func (s *Store) Take(key string) (string, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	category, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	return category, ok
}

// Peek returns the pending category without consuming it.
func (s *Store) Peek(key string) (string, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	category, ok := sh.entries[key]
	return category, ok
}

// Clear drops any pending category for the key.
func (s *Store) Clear(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.entries, key)
}
