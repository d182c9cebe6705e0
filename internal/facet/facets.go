package facet

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/indexhub/internal/store"
)

// ComputeFields computes one term facet per named field over the searcher.
// An empty field list facets every indexed field except internal ones.
func ComputeFields(ctx context.Context, s store.Searcher, fields []string, base query.Query, filters []Filter, size int) ([]*TermResult, error) {
	if len(fields) == 0 {
		all, err := s.Reader().Fields()
		if err != nil {
			return nil, err
		}
		for _, name := range all {
			if strings.HasPrefix(name, "_") {
				continue
			}
			fields = append(fields, name)
		}
	}

	results := make([]*TermResult, 0, len(fields))
	for _, name := range fields {
		res, err := NewFieldFacet(name, 0).Compute(ctx, s, base, filters, size)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
