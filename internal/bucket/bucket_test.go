package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/indexhub/internal/errors"
)

func stringLess(a, b string) bool { return a < b }

func newStringBucket(t *testing.T, capacity int) *Bucket[string] {
	t.Helper()
	b, err := New[string](capacity, stringLess)
	require.NoError(t, err)
	return b
}

func TestNew_RejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := New[string](capacity, stringLess)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetCode(err))
	}
}

func TestAdd_AccumulatesExistingItem(t *testing.T) {
	// Given: a bucket with one item
	b := newStringBucket(t, 3)
	b.Add("go", 2)

	// When: adding the same item again
	b.Add("go", 3)

	// Then: counts accumulate
	assert.Equal(t, 5, b.Count("go"))
	assert.Equal(t, 1, b.Len())
}

func TestEntries_SortedByDescendingCount(t *testing.T) {
	// Given: three items with distinct counts
	b := newStringBucket(t, 5)
	b.Add("mid", 5)
	b.Add("low", 1)
	b.Add("high", 9)

	// When: iterating entries
	var items []string
	var counts []int
	for item, count := range b.Entries() {
		items = append(items, item)
		counts = append(counts, count)
	}

	// Then: non-increasing counts
	assert.Equal(t, []string{"high", "mid", "low"}, items)
	assert.Equal(t, []int{9, 5, 1}, counts)
}

func TestEntries_TiesBrokenByItemOrder(t *testing.T) {
	b := newStringBucket(t, 5)
	b.Add("b", 3)
	b.Add("a", 3)
	b.Add("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, b.Items())
}

func TestEntries_Restartable(t *testing.T) {
	// Given: a populated bucket
	b := newStringBucket(t, 3)
	b.Add("x", 1)
	b.Add("y", 2)

	// When: iterating twice, breaking early the first time
	seq := b.Entries()
	for range seq {
		break
	}
	n := 0
	for range seq {
		n++
	}

	// Then: the second pass sees everything
	assert.Equal(t, 2, n)
}

func TestAdd_FullBucketDropsLowerIncomer(t *testing.T) {
	// Given: a full bucket of capacity 2
	b := newStringBucket(t, 2)
	b.Add("a", 10)
	b.Add("b", 5)

	// When: adding an item counted below the minimum
	b.Add("c", 4)

	// Then: contents unchanged
	assert.Equal(t, []string{"a", "b"}, b.Items())
	assert.Equal(t, 0, b.Count("c"))
}

func TestAdd_FullBucketEvictsMinimumForHigherIncomer(t *testing.T) {
	// Given: a full bucket of capacity 2
	b := newStringBucket(t, 2)
	b.Add("a", 10)
	b.Add("b", 5)

	// When: adding an item counted above the minimum
	b.Add("c", 6)

	// Then: the minimum is evicted
	assert.Equal(t, []string{"a", "c"}, b.Items())
	assert.Equal(t, 0, b.Count("b"))
}

func TestAdd_FullBucketTieFavorsEarlierItem(t *testing.T) {
	// Given: a full bucket whose minimum is "z" with count 5
	b := newStringBucket(t, 2)
	b.Add("m", 10)
	b.Add("z", 5)

	// When: an equal-count earlier item arrives
	b.Add("a", 5)

	// Then: the earlier item wins the tie
	assert.Equal(t, []string{"m", "a"}, b.Items())

	// And: an equal-count later item is dropped
	b.Add("q", 5)
	assert.Equal(t, []string{"m", "a"}, b.Items())
}

func TestCount_AbsentItemIsZero(t *testing.T) {
	b := newStringBucket(t, 2)
	assert.Equal(t, 0, b.Count("missing"))
	assert.True(t, b.IsEmpty())
}

func TestBucket_HoldsAtMostCapacityDistinctItems(t *testing.T) {
	// Given: many distinct items with rising counts
	b := newStringBucket(t, 4)
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, it := range items {
		b.Add(it, i+1)
	}

	// Then: only the 4 highest-count survive
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, []string{"h", "g", "f", "e"}, b.Items())
}
