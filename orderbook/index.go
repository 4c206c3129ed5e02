package orderbook

import (
	"sync"
	"time"

	"github.com/tidwall/btree"
)

// indexEntry is the key of an open order in the index.
type indexEntry struct {
	timestamp time.Time
	id        string
}

func lessEntry(a, b indexEntry) bool {
	if !a.timestamp.Equal(b.timestamp) {
		return a.timestamp.Before(b.timestamp)
	}

	return a.id < b.id
}

// openIndex keeps the ids of open orders sorted oldest first.
type openIndex struct {
	sync.RWMutex

	tree *btree.BTreeG[indexEntry]
}

func newOpenIndex() *openIndex {
	return &openIndex{
		tree: btree.NewBTreeG(lessEntry),
	}
}

func (i *openIndex) add(id string, timestamp time.Time) {
	i.Lock()
	defer i.Unlock()

	i.tree.Set(indexEntry{timestamp: timestamp, id: id})
}

func (i *openIndex) remove(id string, timestamp time.Time) {
	i.Lock()
	defer i.Unlock()

	i.tree.Delete(indexEntry{timestamp: timestamp, id: id})
}

// ids returns the indexed ids oldest first.
func (i *openIndex) ids() []string {
	i.RLock()
	defer i.RUnlock()

	ids := make([]string, 0, i.tree.Len())
	i.tree.Scan(func(entry indexEntry) bool {
		ids = append(ids, entry.id)
		return true
	})

	return ids
}

func (i *openIndex) len() int {
	i.RLock()
	defer i.RUnlock()

	return i.tree.Len()
}
