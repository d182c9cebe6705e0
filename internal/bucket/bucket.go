// Package bucket provides a bounded top-K accumulator for counted items.
package bucket

import (
	"iter"
	"slices"

	"github.com/Aman-CERP/indexhub/internal/errors"
)

// Bucket accumulates (item, count) pairs but only ever holds the K
// highest-count items seen so far, where K is fixed at construction.
// Ties are broken by the item order supplied at construction: the
// lower item survives eviction.
type Bucket[T comparable] struct {
	capacity int
	counts   map[T]int
	less     func(a, b T) bool

	// cached current minimum, invalid when minOK is false
	minItem T
	minOK   bool
}

// Entry is one accumulated (item, count) pair.
type Entry[T comparable] struct {
	Item  T
	Count int
}

// New creates a bucket holding at most capacity items.
// less defines the natural order of items, used to break count ties.
func New[T comparable](capacity int, less func(a, b T) bool) (*Bucket[T], error) {
	if capacity <= 0 {
		return nil, errors.InvalidArgument("bucket capacity must be > 0")
	}
	return &Bucket[T]{
		capacity: capacity,
		counts:   make(map[T]int, capacity),
		less:     less,
	}, nil
}

// Add inserts the item with the given count, or adds to its existing count.
// When the bucket is full, an incoming item counted lower than the current
// minimum is dropped; otherwise the current minimum is evicted.
func (b *Bucket[T]) Add(item T, count int) {
	if existing, ok := b.counts[item]; ok {
		b.counts[item] = existing + count
		b.minOK = false
		return
	}

	if len(b.counts) < b.capacity {
		b.counts[item] = count
		b.minOK = false
		return
	}

	min := b.min()
	minCount := b.counts[min]
	if count < minCount || (count == minCount && b.less(min, item)) {
		// incomer loses, bucket unchanged
		return
	}
	delete(b.counts, min)
	b.counts[item] = count
	b.minOK = false
}

// Count returns the accumulated count for the item, or 0 if absent.
func (b *Bucket[T]) Count(item T) int {
	return b.counts[item]
}

// Len returns the number of items currently held.
func (b *Bucket[T]) Len() int {
	return len(b.counts)
}

// IsEmpty reports whether the bucket holds no items.
func (b *Bucket[T]) IsEmpty() bool {
	return len(b.counts) == 0
}

// Entries yields the held items ordered by descending count, ties broken by
// the item order. The sequence is finite and restartable.
func (b *Bucket[T]) Entries() iter.Seq2[T, int] {
	return func(yield func(T, int) bool) {
		for _, e := range b.sorted() {
			if !yield(e.Item, e.Count) {
				return
			}
		}
	}
}

// Items returns the held items ordered by descending count.
func (b *Bucket[T]) Items() []T {
	entries := b.sorted()
	items := make([]T, len(entries))
	for i, e := range entries {
		items[i] = e.Item
	}
	return items
}

func (b *Bucket[T]) sorted() []Entry[T] {
	entries := make([]Entry[T], 0, len(b.counts))
	for item, count := range b.counts {
		entries = append(entries, Entry[T]{Item: item, Count: count})
	}
	slices.SortFunc(entries, func(x, y Entry[T]) int {
		if x.Count != y.Count {
			return y.Count - x.Count
		}
		if b.less(x.Item, y.Item) {
			return -1
		}
		if b.less(y.Item, x.Item) {
			return 1
		}
		return 0
	})
	return entries
}

// min returns the currently held minimum item: lowest count, and among
// equal counts the highest item (the one that loses ties).
func (b *Bucket[T]) min() T {
	if b.minOK {
		return b.minItem
	}
	var min T
	first := true
	for item, count := range b.counts {
		if first {
			min, first = item, false
			continue
		}
		mc := b.counts[min]
		if count < mc || (count == mc && b.less(min, item)) {
			min = item
		}
	}
	b.minItem = min
	b.minOK = true
	return min
}
