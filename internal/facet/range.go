// Package facet computes term and range facets over a leased searcher.
// Facets never mutate shared state: they read through the searcher and
// accumulate locally, so concurrent computations on one index are safe.
package facet

import "fmt"

// Range is one interval of a facet's value domain. An empty Min or Max
// leaves that end unbounded. Two ranges are equal iff min, max and both
// inclusive flags match.
type Range struct {
	Min          string
	Max          string
	MinInclusive bool
	MaxInclusive bool

	other bool
}

// Other is the sentinel range collecting values that match no configured
// range. It only appears in results when at least one value was
// unclassifiable.
var Other = Range{other: true}

// NewRange creates a range over [min,max] with the given bounds inclusivity.
func NewRange(min, max string, minInclusive, maxInclusive bool) Range {
	return Range{Min: min, Max: max, MinInclusive: minInclusive, MaxInclusive: maxInclusive}
}

// Inclusive creates the common closed range [min,max].
func Inclusive(min, max string) Range {
	return NewRange(min, max, true, true)
}

// IsOther reports whether this is the catch-all sentinel.
func (r Range) IsOther() bool {
	return r.other
}

// Less orders ranges by min bound, then max bound. The sentinel sorts last.
func (r Range) Less(o Range) bool {
	if r.other != o.other {
		return !r.other
	}
	if r.Min != o.Min {
		return r.Min < o.Min
	}
	return r.Max < o.Max
}

// String renders the range in interval notation.
func (r Range) String() string {
	if r.other {
		return "OTHER"
	}
	lo, hi := "(", ")"
	if r.MinInclusive {
		lo = "["
	}
	if r.MaxInclusive {
		hi = "]"
	}
	return fmt.Sprintf("%s%s,%s%s", lo, r.Min, r.Max, hi)
}

// containsString reports whether a term falls inside the range under
// lexicographic order.
func (r Range) containsString(term string) bool {
	if r.other {
		return false
	}
	if r.Min != "" {
		if r.MinInclusive {
			if term < r.Min {
				return false
			}
		} else if term <= r.Min {
			return false
		}
	}
	if r.Max != "" {
		if r.MaxInclusive {
			if term > r.Max {
				return false
			}
		} else if term >= r.Max {
			return false
		}
	}
	return true
}

// Resolution is the precision a date value is truncated to before range
// classification. Date terms are indexed in the compact yyyyMMddHHmmss
// form, so truncation is a prefix cut.
type Resolution int

const (
	Year Resolution = iota
	Month
	Day
	Hour
	Minute
	Second
)

var resolutionLen = [...]int{4, 6, 8, 10, 12, 14}

// Truncate cuts a compact date string down to the resolution's precision.
func (res Resolution) Truncate(v string) string {
	if res < Year || res > Second {
		return v
	}
	if n := resolutionLen[res]; len(v) > n {
		return v[:n]
	}
	return v
}

// String returns the resolution name.
func (res Resolution) String() string {
	switch res {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	case Hour:
		return "hour"
	case Minute:
		return "minute"
	case Second:
		return "second"
	default:
		return "unknown"
	}
}
