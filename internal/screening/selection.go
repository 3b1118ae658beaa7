package screening

import (
	"fmt"
)

// Dimension is one analysis facet requested from the analyzer.
type Dimension string

const (
	DimensionPercentage   Dimension = "percentage"
	DimensionSimilarities Dimension = "similarities"
	DimensionMissing      Dimension = "missing"
	DimensionCourses      Dimension = "courses"
	// DimensionAll is a sentinel covering every facet.
	DimensionAll Dimension = "all"
)

// A selection can hold at most this many concrete dimensions.
const maxConcreteDimensions = 3

var ErrSelectionFull = fmt.Errorf("selection already holds %d dimensions", maxConcreteDimensions)

// ParseDimension validates a raw dimension identifier.
func ParseDimension(raw string) (Dimension, error) {
	switch d := Dimension(raw); d {
	case DimensionPercentage, DimensionSimilarities, DimensionMissing, DimensionCourses, DimensionAll:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dimension: %q", raw)
	}
}

// Selection is the set of feedback dimensions to request. It holds either
// the "all" sentinel or up to three concrete dimensions, never both.
type Selection struct {
	all  bool
	dims []Dimension
}

// NewSelection builds a selection by enabling each of the given dimensions
// in order.
func NewSelection(dims ...Dimension) (*Selection, error) {
	s := &Selection{}
	for _, dim := range dims {
		if err := s.Toggle(dim, true); err != nil {
			return nil, fmt.Errorf("enabling %q: %w", dim, err)
		}
	}
	return s, nil
}

// Toggle enables or disables one dimension. Enabling "all" replaces the
// whole set with the sentinel; toggling a concrete dimension first strips
// the sentinel. Enabling a fourth concrete dimension fails without changing
// the set.
func (s *Selection) Toggle(dim Dimension, enabled bool) error {
	if dim == DimensionAll {
		s.all = enabled
		s.dims = nil
		return nil
	}

	s.all = false

	idx := -1
	for i, stored := range s.dims {
		if stored == dim {
			idx = i
			break
		}
	}

	if !enabled {
		if idx >= 0 {
			s.dims = append(s.dims[:idx], s.dims[idx+1:]...)
		}
		return nil
	}

	if idx >= 0 {
		return nil
	}

	if len(s.dims) >= maxConcreteDimensions {
		return ErrSelectionFull
	}

	s.dims = append(s.dims, dim)
	return nil
}

// IsActive reports whether the dimension is requested, either literally or
// through the "all" sentinel.
func (s *Selection) IsActive(dim Dimension) bool {
	if s.all {
		return true
	}
	for _, stored := range s.dims {
		if stored == dim {
			return true
		}
	}
	return false
}

// Identifiers returns the serialized identifiers sent to the analyzer.
func (s *Selection) Identifiers() []string {
	if s.all {
		return []string{string(DimensionAll)}
	}
	ids := make([]string, 0, len(s.dims))
	for _, dim := range s.dims {
		ids = append(ids, string(dim))
	}
	return ids
}

// Dimensions returns the concrete dimensions covered by the selection,
// expanding the "all" sentinel.
func (s *Selection) Dimensions() []Dimension {
	if s.all {
		return []Dimension{DimensionPercentage, DimensionSimilarities, DimensionMissing, DimensionCourses}
	}
	dims := make([]Dimension, len(s.dims))
	copy(dims, s.dims)
	return dims
}

func (s *Selection) IsEmpty() bool {
	return !s.all && len(s.dims) == 0
}
