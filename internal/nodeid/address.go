package nodeid

import (
	"fmt"
	"slices"
	"strings"
)

// Address is the structured representation of a unique task identifier.
type Address struct {
	Segments []string
}

// New builds an address from segment names. It returns an error when a name
// is not a valid segment.
func New(names ...string) (*Address, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("identifier cannot be empty")
	}
	for _, name := range names {
		if !ValidSegment(name) {
			return nil, fmt.Errorf("invalid segment name: %q", name)
		}
	}
	return &Address{Segments: slices.Clone(names)}, nil
}

// String joins the segments with dots.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Segments, ".")
}

// Root returns the first segment, which for stage tasks is the stage.
func (a *Address) Root() string {
	if a == nil || len(a.Segments) == 0 {
		return ""
	}
	return a.Segments[0]
}

// Equal reports whether both addresses name the same task.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Segments, other.Segments)
}
