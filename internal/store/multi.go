package store

import (
	"context"
	stderrors "errors"
	"slices"

	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/sync/errgroup"
)

// multiReader is a merged read view over several constituent readers.
// Document counts aggregate across constituents and term enumeration merges
// their dictionaries.
type multiReader struct {
	readers []Reader
}

// NewMultiReader wraps the given readers into one merged read view.
// Closing the view closes every constituent, best effort: all closes are
// attempted and failures are aggregated.
func NewMultiReader(readers []Reader) Reader {
	return &multiReader{readers: slices.Clone(readers)}
}

// Generation returns 0: a merged view spans indexes with independent
// generation counters.
func (m *multiReader) Generation() uint64 {
	return 0
}

// Count sums the constituent counts, querying them concurrently.
func (m *multiReader) Count(ctx context.Context, q query.Query) (int, error) {
	counts := make([]int, len(m.readers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range m.readers {
		g.Go(func() error {
			n, err := r.Count(gctx, q)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// TermsOf merges the constituent dictionaries, deduplicated and sorted,
// truncated at max.
func (m *multiReader) TermsOf(field string, max int) ([]string, error) {
	seen := make(map[string]struct{})
	for _, r := range m.readers {
		terms, err := r.TermsOf(field, max)
		if err != nil {
			return nil, err
		}
		for _, t := range terms {
			seen[t] = struct{}{}
		}
	}
	merged := make([]string, 0, len(seen))
	for t := range seen {
		merged = append(merged, t)
	}
	slices.Sort(merged)
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged, nil
}

// Fields returns the union of constituent field names, sorted.
func (m *multiReader) Fields() ([]string, error) {
	seen := make(map[string]struct{})
	for _, r := range m.readers {
		fields, err := r.Fields()
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			seen[f] = struct{}{}
		}
	}
	union := make([]string, 0, len(seen))
	for f := range seen {
		union = append(union, f)
	}
	slices.Sort(union)
	return union, nil
}

// DocCount sums the constituent document counts.
func (m *multiReader) DocCount() (uint64, error) {
	var total uint64
	for _, r := range m.readers {
		n, err := r.DocCount()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Close closes every constituent even if one fails; failures aggregate.
func (m *multiReader) Close() error {
	var errs []error
	for _, r := range m.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	return stderrors.Join(errs...)
}

var _ Reader = (*multiReader)(nil)
