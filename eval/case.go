package eval

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCase is returned when a Case is missing required fields.
var ErrInvalidCase = errors.New("invalid case")

// Case is a single evaluation record: the question asked, the answer the
// application produced, and the reference passages retrieved for it.
type Case struct {
	// Name labels the case in reports. Optional.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Input is the question or prompt given to the application.
	Input string `yaml:"input" json:"input"`

	// ActualOutput is the answer the application produced.
	ActualOutput string `yaml:"actual_output" json:"actual_output"`

	// RetrievalContext holds the passages considered ground truth, in order.
	// Optional.
	RetrievalContext []string `yaml:"retrieval_context,omitempty" json:"retrieval_context,omitempty"`
}

// Validate reports whether the case has a non-empty input and output.
func (c Case) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("%w: input is required", ErrInvalidCase)
	}
	if strings.TrimSpace(c.ActualOutput) == "" {
		return fmt.Errorf("%w: actual output is required", ErrInvalidCase)
	}
	return nil
}

// label returns the name used for the case in spans and reports.
func (c Case) label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Input
}

// caseFile is the on-disk layout read by LoadCases.
type caseFile struct {
	Cases []Case `yaml:"cases"`
}

// LoadCases decodes a YAML document of the form
//
//	cases:
//	  - input: "Can I return these shoes after 30 days?"
//	    actual_output: "Unfortunately, returns are only accepted within 30 days of purchase."
//	    retrieval_context:
//	      - "Returns are only accepted within 30 days of purchase."
//
// Every case is validated.
func LoadCases(r io.Reader) ([]Case, error) {
	var f caseFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode cases: %w", err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("%w: no cases found", ErrInvalidCase)
	}
	for i, c := range f.Cases {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
	}
	return f.Cases, nil
}
