package eval

import "io"

// Dataset is an iterator over evaluation cases.
type Dataset interface {
	// Next returns the next case, or io.EOF if there are no more cases.
	Next() (Case, error)
}

// NewDataset creates a Dataset iterator from a slice of cases.
func NewDataset(cases []Case) Dataset {
	return &sliceCases{
		cases: cases,
		index: 0,
	}
}

// sliceCases implements the Dataset interface for a slice of cases.
type sliceCases struct {
	cases []Case
	index int
}

// Next returns the next case, or io.EOF if there are no more cases.
func (s *sliceCases) Next() (Case, error) {
	if s.index >= len(s.cases) {
		return Case{}, io.EOF
	}

	c := s.cases[s.index]
	s.index++
	return c, nil
}
