package cmd

import (
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_NoTermsMatchesAll(t *testing.T) {
	q, err := buildQuery(nil)
	require.NoError(t, err)
	assert.IsType(t, &query.MatchAllQuery{}, q)
}

func TestBuildQuery_SingleTerm(t *testing.T) {
	q, err := buildQuery([]string{"title:alpha"})
	require.NoError(t, err)

	tq, ok := q.(*query.TermQuery)
	require.True(t, ok)
	assert.Equal(t, "alpha", tq.Term)
	assert.Equal(t, "title", tq.FieldVal)
}

func TestBuildQuery_MultipleTermsConjoin(t *testing.T) {
	q, err := buildQuery([]string{"title:alpha", "lang:en"})
	require.NoError(t, err)

	cq, ok := q.(*query.ConjunctionQuery)
	require.True(t, ok)
	assert.Len(t, cq.Conjuncts, 2)
}

func TestBuildQuery_RejectsMalformedSpecs(t *testing.T) {
	for _, spec := range []string{"title", ":alpha", "title:", ""} {
		_, err := buildQuery([]string{spec})
		assert.Error(t, err, "spec %q", spec)
	}
}
