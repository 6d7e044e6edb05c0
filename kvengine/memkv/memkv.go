// Package memkv is an in-memory kvengine.Store, used by the package
// tests in this module that need a store (except those exercising
// badgerkv itself) and by the REPL's ephemeral mode. Writes and
// deletes are buffered in the transaction and only applied to the
// backing map on Commit.
package memkv

import (
	"sync"

	"github.com/wvankleunen/jsondb/kvengine"
	"github.com/wvankleunen/jsondb/valuekey"
)

type store struct {
	mu   sync.Mutex
	data map[valuekey.Key][]byte
	open bool
}

// New returns a fresh, empty in-memory Store.
func New() kvengine.Store {
	return &store{data: make(map[valuekey.Key][]byte), open: true}
}

func (s *store) Begin() (kvengine.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &tx{
		s:      s,
		writes: make(map[valuekey.Key][]byte),
		dels:   make(map[valuekey.Key]bool),
	}, nil
}

func (s *store) Close() error {
	return nil
}

func (s *store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[valuekey.Key][]byte)
	return nil
}

type tx struct {
	s      *store
	writes map[valuekey.Key][]byte
	dels   map[valuekey.Key]bool
	done   bool
}

func (t *tx) Get(key valuekey.Key) ([]byte, bool, error) {
	if v, ok := t.writes[key]; ok {
		return v, true, nil
	}
	if t.dels[key] {
		return nil, false, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	v, ok := t.s.data[key]
	return v, ok, nil
}

func (t *tx) Put(key valuekey.Key, value []byte) error {
	delete(t.dels, key)
	t.writes[key] = value
	return nil
}

func (t *tx) Delete(key valuekey.Key) error {
	delete(t.writes, key)
	t.dels[key] = true
	return nil
}

func (t *tx) Cursor() (kvengine.Cursor, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	seen := make(map[valuekey.Key]bool, len(t.s.data)+len(t.writes))
	keys := make([]valuekey.Key, 0, len(t.s.data)+len(t.writes))
	for k := range t.s.data {
		if t.dels[k] {
			continue
		}
		if _, overwritten := t.writes[k]; overwritten {
			continue
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range t.writes {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return &cursor{keys: keys}, nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for k := range t.dels {
		delete(t.s.data, k)
	}
	for k, v := range t.writes {
		t.s.data[k] = v
	}
	return nil
}

func (t *tx) Abort() error {
	t.done = true
	return nil
}

type cursor struct {
	keys []valuekey.Key
	pos  int
}

func (c *cursor) Next() (valuekey.Key, bool, error) {
	if c.pos >= len(c.keys) {
		return 0, false, nil
	}
	k := c.keys[c.pos]
	c.pos++
	return k, true, nil
}

func (c *cursor) Close() error {
	return nil
}
