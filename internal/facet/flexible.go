package facet

import (
	"context"
	"strconv"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/indexhub/internal/bucket"
	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// rangeKind selects the value domain of a range facet.
type rangeKind int

const (
	stringRanges rangeKind = iota
	dateRanges
	numericRanges
)

// RangeFacet counts documents per configured range of one field. The range
// list is fixed by the caller, never discovered.
//
// String and date facets enumerate the field's term dictionary and classify
// each counted term into a range, so a term outside every range lands in
// the Other bucket. Numeric facets skip enumeration and issue one counting
// query per configured range; the classifier is deliberately unused there,
// and Other never appears.
type RangeFacet struct {
	field      string
	kind       rangeKind
	ranges     []Range
	resolution Resolution
	maxTerms   int
}

// NewStringRangeFacet creates a range facet classifying terms by
// lexicographic comparison.
func NewStringRangeFacet(field string, ranges []Range, maxTerms int) *RangeFacet {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}
	return &RangeFacet{field: field, kind: stringRanges, ranges: ranges, maxTerms: maxTerms}
}

// NewDateRangeFacet creates a range facet classifying compact date terms
// after truncating both term and bounds to the resolution.
func NewDateRangeFacet(field string, resolution Resolution, ranges []Range, maxTerms int) *RangeFacet {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}
	return &RangeFacet{field: field, kind: dateRanges, ranges: ranges, resolution: resolution, maxTerms: maxTerms}
}

// NewNumericRangeFacet creates a range facet counting each configured
// numeric range with a direct range query.
func NewNumericRangeFacet(field string, ranges []Range) *RangeFacet {
	return &RangeFacet{field: field, kind: numericRanges, ranges: ranges}
}

// Field returns the faceted field name.
func (f *RangeFacet) Field() string {
	return f.field
}

// RangeResult is the outcome of one range facet computation.
type RangeResult struct {
	// Field is the faceted field.
	Field string
	// Flexible reports whether the computation ran against a narrowed
	// base query rather than the whole index.
	Flexible bool
	// Ranges holds the counted ranges, trimmed to the requested size.
	// String and date facets only hold ranges that actually collected
	// documents; numeric facets include zero-count ranges, so every
	// configured range is present whenever size admits them all.
	Ranges *bucket.Bucket[Range]
	// TotalResults counts the documents matching the narrowed base query
	// that have this field at all. Zero in unfiltered mode.
	TotalResults int

	// totalRanges tallies the populated ranges before the size cut.
	totalRanges int
}

// TotalRanges returns the number of ranges that collected at least one
// document. The tally is taken before the size cut, so it can exceed the
// entries kept in Ranges.
func (r *RangeResult) TotalRanges() int {
	return r.totalRanges
}

// Count returns the accumulated count for the range, 0 if absent.
func (r *RangeResult) Count(rg Range) int {
	return r.Ranges.Count(rg)
}

// Compute runs the facet against the searcher. Filters on the facet's own
// field are left out of the narrowing, so the facet reports counts as if
// its own restriction were not yet applied. size bounds the kept ranges;
// size <= 0 is invalid.
func (f *RangeFacet) Compute(ctx context.Context, s store.Searcher, base query.Query, filters []Filter, size int) (*RangeResult, error) {
	if size <= 0 {
		return nil, errors.InvalidArgument("facet size must be > 0")
	}

	flexible := base != nil || len(filters) > 0
	narrowed := narrow(base, filters, f.field)

	b, err := bucket.New(size, Range.Less)
	if err != nil {
		return nil, err
	}

	var populated int
	if f.kind == numericRanges {
		populated, err = f.countFixedRanges(ctx, s, narrowed, b)
	} else {
		populated, err = f.classifyTerms(ctx, s, narrowed, b)
	}
	if err != nil {
		return nil, err
	}

	res := &RangeResult{
		Field:       f.field,
		Flexible:    flexible,
		Ranges:      b,
		totalRanges: populated,
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

// classifyTerms is the discovered-term driver: enumerate the dictionary,
// count each term, and accumulate counted terms under their classified
// range. Only terms that matched documents contribute, so empty configured
// ranges stay absent from the result. Returns the populated-range tally,
// taken before the bucket trims to size.
func (f *RangeFacet) classifyTerms(ctx context.Context, s store.Searcher, narrowed query.Query, b *bucket.Bucket[Range]) (int, error) {
	terms, err := s.Reader().TermsOf(f.field, f.maxTerms)
	if err != nil {
		return 0, errors.StoreError("enumerating facet terms", err)
	}
	populated := make(map[Range]struct{})
	for _, term := range terms {
		n, err := s.Count(ctx, and(narrowed, termQuery(f.field, term)))
		if err != nil {
			return 0, errors.StoreError("counting facet term", err)
		}
		if n == 0 {
			continue
		}
		rg, ok := f.findRange(term)
		if !ok {
			rg = Other
		}
		b.Add(rg, n)
		populated[rg] = struct{}{}
	}
	return len(populated), nil
}

// countFixedRanges is the fixed-range driver: one counting query per
// configured range. Zero counts are added too, so every configured range
// shows up when size admits it; a tighter size keeps the top counts only.
// Returns the populated-range tally, taken before the bucket trims.
func (f *RangeFacet) countFixedRanges(ctx context.Context, s store.Searcher, narrowed query.Query, b *bucket.Bucket[Range]) (int, error) {
	populated := 0
	for _, rg := range f.ranges {
		q, err := numericRangeQuery(f.field, rg)
		if err != nil {
			return 0, err
		}
		n, err := s.Count(ctx, and(narrowed, q))
		if err != nil {
			return 0, errors.StoreError("counting facet range", err)
		}
		if n > 0 {
			populated++
		}
		b.Add(rg, n)
	}
	return populated, nil
}

// findRange classifies a term into the first configured range containing
// it, in configuration order.
func (f *RangeFacet) findRange(term string) (Range, bool) {
	probe := term
	if f.kind == dateRanges {
		probe = f.resolution.Truncate(term)
	}
	for _, rg := range f.ranges {
		cmp := rg
		if f.kind == dateRanges {
			cmp.Min = f.resolution.Truncate(rg.Min)
			cmp.Max = f.resolution.Truncate(rg.Max)
		}
		if cmp.containsString(probe) {
			return rg, true
		}
	}
	return Range{}, false
}

// numericRangeQuery builds the counting query for one numeric range.
func numericRangeQuery(field string, rg Range) (query.Query, error) {
	var min, max *float64
	if rg.Min != "" {
		v, err := strconv.ParseFloat(rg.Min, 64)
		if err != nil {
			return nil, errors.InvalidArgument("numeric range min " + strconv.Quote(rg.Min) + " is not a number")
		}
		min = &v
	}
	if rg.Max != "" {
		v, err := strconv.ParseFloat(rg.Max, 64)
		if err != nil {
			return nil, errors.InvalidArgument("numeric range max " + strconv.Quote(rg.Max) + " is not a number")
		}
		max = &v
	}
	minInc, maxInc := rg.MinInclusive, rg.MaxInclusive
	q := query.NewNumericRangeInclusiveQuery(min, max, &minInc, &maxInc)
	q.SetField(field)
	return q, nil
}
