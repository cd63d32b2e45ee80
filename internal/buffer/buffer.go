package buffer

import (
	"cmp"
	"slices"
	"sync"
)

// Entry is a single buffered key/value pair.
type Entry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Buffer collects keyed entries and yields them sorted by key.
// Putting an existing key replaces its value.
type Buffer[K cmp.Ordered, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

func NewBuffer[K cmp.Ordered, V any]() *Buffer[K, V] {
	return &Buffer[K, V]{m: map[K]V{}}
}

func (b *Buffer[K, V]) Put(k K, v V) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[k] = v
}

func (b *Buffer[K, V]) Get(k K) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.m[k]
	return v, ok
}

func (b *Buffer[K, V]) Delete(k K) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, k)
}

func (b *Buffer[K, V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}

// Entries returns a sorted copy of the buffered entries.
func (b *Buffer[K, V]) Entries() []Entry[K, V] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sorted()
}

// Drain returns the sorted entries and empties the buffer.
func (b *Buffer[K, V]) Drain() []Entry[K, V] {
	b.mu.Lock()
	es := b.sorted()
	b.m = map[K]V{}
	b.mu.Unlock()
	return es
}

func (b *Buffer[K, V]) Reset() {
	b.Drain()
}

func (b *Buffer[K, V]) sorted() []Entry[K, V] {
	es := make([]Entry[K, V], 0, len(b.m))
	for k, v := range b.m {
		es = append(es, Entry[K, V]{Key: k, Value: v})
	}
	slices.SortFunc(es, func(a, b Entry[K, V]) int { return cmp.Compare(a.Key, b.Key) })
	return es
}
