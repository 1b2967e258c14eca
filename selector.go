package bgen

import "github.com/grailbio/bgen/bgenerrors"

// SelectorKind distinguishes the two shapes a Selector can take.
type SelectorKind int

const (
	// SelectorRange selects a contiguous half-open range [Start, End).
	SelectorRange SelectorKind = iota
	// SelectorList selects an explicit, ordered list of indices.
	SelectorList
)

// Selector is a small value object describing which indices along the
// sample axis or variant axis a query should include. Selectors are
// applied after raw decoding; they never short-circuit reads of
// per-variant payload, since BGEN is not random-access within a
// variant block.
//
// Rather than reconstructing a whole reader per slice, a Selector is a
// plain value the façade composes
// lazily, with no file or index I/O of its own.
type Selector struct {
	Kind  SelectorKind
	Start int
	End   int
	// Indices holds the explicit index list for SelectorList. Negative
	// entries denote "not found" and are dropped during resolution.
	Indices []int
}

// FullRange returns a Selector covering [0, n).
func FullRange(n int) Selector {
	return Selector{Kind: SelectorRange, Start: 0, End: n}
}

// RangeSelector returns a Selector over the half-open range [start, end).
func RangeSelector(start, end int) Selector {
	return Selector{Kind: SelectorRange, Start: start, End: end}
}

// ListSelector returns a Selector over an explicit, ordered list of
// indices. Negative entries denote "not found" and are dropped when
// the Selector is resolved.
func ListSelector(indices []int) Selector {
	return Selector{Kind: SelectorList, Indices: indices}
}

// resolve expands the Selector into concrete indices into [0, n),
// preserving the caller's order for a list selector.
func (s Selector) resolve(path string, n int) ([]int, error) {
	switch s.Kind {
	case SelectorRange:
		if s.Start < 0 || s.End < s.Start || s.End > n {
			return nil, bgenerrors.E(path, bgenerrors.SelectorType, "range selector out of bounds")
		}
		out := make([]int, 0, s.End-s.Start)
		for i := s.Start; i < s.End; i++ {
			out = append(out, i)
		}
		return out, nil
	case SelectorList:
		out := make([]int, 0, len(s.Indices))
		for _, i := range s.Indices {
			if i < 0 {
				continue
			}
			if i >= n {
				return nil, bgenerrors.E(path, bgenerrors.SelectorType, "list selector index out of bounds")
			}
			out = append(out, i)
		}
		return out, nil
	default:
		return nil, bgenerrors.E(path, bgenerrors.SelectorType, "selector is neither a range nor a list")
	}
}
