package facet

import (
	"context"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/indexhub/internal/bucket"
	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// DefaultMaxTerms bounds term-dictionary enumeration per facet. High
// cardinality fields get truncated deterministically at the cap, in the
// dictionary's enumeration order, rather than failing.
const DefaultMaxTerms = 10000

// FieldFacet counts documents per distinct term of one field. Terms are
// discovered from the reader's dictionary, counted one term query at a
// time, and the top entries kept in a bounded bucket.
type FieldFacet struct {
	field    string
	maxTerms int
}

// NewFieldFacet creates a term facet on the field, enumerating at most
// maxTerms distinct values; maxTerms <= 0 uses DefaultMaxTerms.
func NewFieldFacet(field string, maxTerms int) *FieldFacet {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}
	return &FieldFacet{field: field, maxTerms: maxTerms}
}

// Field returns the faceted field name.
func (f *FieldFacet) Field() string {
	return f.field
}

// TermResult is the outcome of one term facet computation.
type TermResult struct {
	// Field is the faceted field.
	Field string
	// Flexible reports whether the computation ran against a narrowed
	// base query rather than the whole index.
	Flexible bool
	// Terms holds the top counted terms.
	Terms *bucket.Bucket[string]
	// TotalTerms is the number of distinct terms enumerated, before the
	// top-N cut.
	TotalTerms int
	// TotalResults counts the documents matching the narrowed base query
	// that have this field at all. Zero in unfiltered mode.
	TotalResults int
}

// Compute runs the facet against the searcher. The base query and filters
// narrow the counts, except that filters on the facet's own field are left
// out. size bounds the kept entries; size <= 0 is invalid.
func (f *FieldFacet) Compute(ctx context.Context, s store.Searcher, base query.Query, filters []Filter, size int) (*TermResult, error) {
	if size <= 0 {
		return nil, errors.InvalidArgument("facet size must be > 0")
	}

	flexible := base != nil || len(filters) > 0
	narrowed := narrow(base, filters, f.field)

	terms, err := s.Reader().TermsOf(f.field, f.maxTerms)
	if err != nil {
		return nil, errors.StoreError("enumerating facet terms", err)
	}

	b, err := bucket.New(size, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, err
	}

	for _, term := range terms {
		n, err := s.Count(ctx, and(narrowed, termQuery(f.field, term)))
		if err != nil {
			return nil, errors.StoreError("counting facet term", err)
		}
		if n > 0 {
			b.Add(term, n)
		}
	}

	res := &TermResult{
		Field:      f.field,
		Flexible:   flexible,
		Terms:      b,
		TotalTerms: len(terms),
	}
	if flexible {
		total, err := s.Count(ctx, and(narrowed, fieldPresence(f.field)))
		if err != nil {
			return nil, errors.StoreError("counting facet total", err)
		}
		res.TotalResults = total
	}
	return res, nil
}
