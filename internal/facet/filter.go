package facet

import (
	"github.com/blevesearch/bleve/v2/search/query"
)

// Filter is one already-applied restriction of the result set, tagged with
// the field it restricts so facets on that field can leave it out.
type Filter struct {
	// Field is the restricted field.
	Field string
	// Query is the restriction itself.
	Query query.Query
}

// NewTermFilter builds a filter restricting the field to one term.
func NewTermFilter(field, term string) Filter {
	q := query.NewTermQuery(term)
	q.SetField(field)
	return Filter{Field: field, Query: q}
}

// narrow combines the base query with every filter except those restricting
// the excluded field. A facet must count as if its own filter were not yet
// applied; otherwise selecting a facet value collapses its own count and no
// alternative values can be shown. Returns nil when nothing restricts the
// result set.
func narrow(base query.Query, filters []Filter, excludeField string) query.Query {
	conjuncts := make([]query.Query, 0, len(filters)+1)
	if base != nil {
		conjuncts = append(conjuncts, base)
	}
	for _, f := range filters {
		if f.Field == excludeField {
			continue
		}
		conjuncts = append(conjuncts, f.Query)
	}
	switch len(conjuncts) {
	case 0:
		return nil
	case 1:
		return conjuncts[0]
	default:
		return query.NewConjunctionQuery(conjuncts)
	}
}

// and conjoins a narrowed query with one more restriction; q may be nil.
func and(q, restriction query.Query) query.Query {
	if q == nil {
		return restriction
	}
	return query.NewConjunctionQuery([]query.Query{q, restriction})
}

// fieldPresence matches every document that has at least one term in the
// field, regardless of value.
func fieldPresence(field string) query.Query {
	q := query.NewWildcardQuery("*")
	q.SetField(field)
	return q
}

// termQuery matches the exact term in the field.
func termQuery(field, term string) query.Query {
	q := query.NewTermQuery(term)
	q.SetField(field)
	return q
}
