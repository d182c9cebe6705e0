package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMerged(t *testing.T, s *BleveStore, ids ...string) Reader {
	t.Helper()
	readers := make([]Reader, len(ids))
	for i, id := range ids {
		r, err := s.OpenReader(context.Background(), id)
		require.NoError(t, err)
		readers[i] = r
	}
	m := NewMultiReader(readers)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMultiReader_AggregatesCounts(t *testing.T) {
	// Given: two indexes sharing a term
	s := newMemStore(t)
	commitDocs(t, s, "books", titleDoc("1", "alpha"), titleDoc("2", "beta"))
	commitDocs(t, s, "journals", titleDoc("1", "alpha"))

	m := openMerged(t, s, "books", "journals")

	// Then: counts sum across constituents
	n, err := m.Count(context.Background(), titleQuery("alpha"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := m.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
}

func TestMultiReader_MergesTermDictionaries(t *testing.T) {
	s := newMemStore(t)
	commitDocs(t, s, "books", titleDoc("1", "alpha"), titleDoc("2", "beta"))
	commitDocs(t, s, "journals", titleDoc("1", "beta"), titleDoc("2", "gamma"))

	m := openMerged(t, s, "books", "journals")

	// Merged dictionary is deduplicated and sorted.
	terms, err := m.TermsOf("title", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, terms)

	capped, err := m.TermsOf("title", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, capped)
}

func TestMultiReader_FieldsUnion(t *testing.T) {
	s := newMemStore(t)
	commitDocs(t, s, "books", &Document{
		ID:     "1",
		Fields: []Field{{Name: "title", Value: "alpha", Indexed: true}},
	})
	commitDocs(t, s, "journals", &Document{
		ID:     "1",
		Fields: []Field{{Name: "issue", Value: "12", Indexed: true}},
	})

	m := openMerged(t, s, "books", "journals")

	fields, err := m.Fields()
	require.NoError(t, err)
	assert.Subset(t, fields, []string{"issue", "title"})
}

func TestMultiReader_GenerationIsUndefined(t *testing.T) {
	s := newMemStore(t)
	commitDocs(t, s, "books", titleDoc("1", "alpha"))

	m := openMerged(t, s, "books")
	assert.Equal(t, uint64(0), m.Generation())
}
